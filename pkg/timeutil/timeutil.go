// Package timeutil provides timezone-aware time helpers for league
// scheduling. League nights are anchored to the house's local wall clock,
// so all day boundaries and check-in times are computed in a configured
// location rather than UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// WallClock is a time of day without a date, such as a check-in opening
// time. Hour is 0-23, Minute is 0-59.
type WallClock struct {
	Hour   int
	Minute int
}

// ParseWallClock parses a "HH:MM" string into a WallClock.
func ParseWallClock(value string) (WallClock, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return WallClock{}, fmt.Errorf("invalid wall clock %q: want HH:MM", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return WallClock{}, fmt.Errorf("invalid wall clock %q: bad hour", value)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return WallClock{}, fmt.Errorf("invalid wall clock %q: bad minute", value)
	}

	return WallClock{Hour: hour, Minute: minute}, nil
}

// String formats the wall clock as "HH:MM".
func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// On anchors the wall clock to the date of t in the given location.
func (w WallClock) On(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), w.Hour, w.Minute, 0, 0, loc)
}

// LoadLocation resolves an IANA timezone name, defaulting to UTC when
// the name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// StartOfDay returns the start of the day (00:00:00) in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// IsSameDay checks if two times are on the same day in the given location.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	a1, a2 := t1.In(loc), t2.In(loc)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysBetween calculates the number of whole days between two times.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	a1 := StartOfDay(t1, loc)
	a2 := StartOfDay(t2, loc)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// FormatIn formats a time in the given location with the given layout.
func FormatIn(t time.Time, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}

// FormatRelative returns a human-readable relative time string, such as
// "5 min ago" or "in 2 h". Used by status surfaces.
func FormatRelative(t, now time.Time) string {
	duration := now.Sub(t)
	if duration < 0 {
		return formatFutureDuration(-duration)
	}
	return formatPastDuration(duration)
}

func formatPastDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		return fmt.Sprintf("%d weeks ago", weeks)
	}
}

func formatFutureDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("in %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %d h", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "tomorrow"
		}
		return fmt.Sprintf("in %d days", days)
	}
}
