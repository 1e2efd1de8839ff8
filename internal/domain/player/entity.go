// Package player contains the league member model. This is core business
// logic with no external dependencies.
package player

import (
	"fmt"
	"strings"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ChatID is the player's identifier on the chat platform the league runs on.
type ChatID int64

// IsValid reports whether the ChatID is positive.
func (c ChatID) IsValid() bool {
	return c > 0
}

// Division is a 1-based division number. Division 1 is the highest.
type Division int

// IsValid reports whether the division number is usable.
func (d Division) IsValid() bool {
	return d >= 1
}

// Rating is a player's league rating. Ratings are stored unrounded and only
// rounded for display.
type Rating float64

// DefaultRating is the rating assigned to every newly registered player.
const DefaultRating Rating = 8000

// Apply returns the rating shifted by delta. Ratings are not clamped.
func (r Rating) Apply(delta float64) Rating {
	return r + Rating(delta)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PLAYER
// ══════════════════════════════════════════════════════════════════════════════

// Player is a registered league member.
type Player struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// ChatID identifies the player on the chat platform.
	ChatID ChatID

	// DisplayName is the name shown in standings and reveal announcements.
	DisplayName string

	// Rating is the current league rating.
	Rating Rating

	// Division the player currently competes in.
	Division Division

	// TierName is the rank tier derived from Rating at the last reveal.
	TierName string

	// UnexcusedMisses counts every session the player skipped without
	// checking in. It is cumulative and never decremented.
	UnexcusedMisses int

	// MissesSinceDecay counts misses since the decay penalty last applied.
	// Resets to zero on attendance and when the penalty fires.
	MissesSinceDecay int

	// Retired players are excluded from reminders, decay, and reshuffles
	// but keep their history.
	Retired bool

	// SeasonStats accumulates per-season aggregates.
	SeasonStats SeasonStats

	// CreatedAt is when the player registered.
	CreatedAt time.Time

	// UpdatedAt is the last mutation time.
	UpdatedAt time.Time
}

// SeasonStats holds per-season aggregates, reset when a new season starts.
type SeasonStats struct {
	SessionsPlayed int
	SeriesTotal    int
	HighGame       int
	HighSeries     int
	BonusEarned    float64
}

// RecordSeries folds one revealed series into the running season totals.
func (s *SeasonStats) RecordSeries(game1, game2 int, bonus float64) {
	s.SessionsPlayed++
	total := game1 + game2
	s.SeriesTotal += total
	if game1 > s.HighGame {
		s.HighGame = game1
	}
	if game2 > s.HighGame {
		s.HighGame = game2
	}
	if total > s.HighSeries {
		s.HighSeries = total
	}
	s.BonusEarned += bonus
}

// AverageSeries returns the mean series total, or zero before any session.
func (s SeasonStats) AverageSeries() float64 {
	if s.SessionsPlayed == 0 {
		return 0
	}
	return float64(s.SeriesTotal) / float64(s.SessionsPlayed)
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewPlayerParams carries the inputs for registering a player.
type NewPlayerParams struct {
	ID          string
	ChatID      ChatID
	DisplayName string
	Division    Division
}

// NewPlayer registers a new player with the default rating.
func NewPlayer(params NewPlayerParams) (*Player, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("player", "NewPlayer", shared.ErrInvalidInput, "player id is required")
	}
	if !params.ChatID.IsValid() {
		return nil, shared.NewDomainError("player", "NewPlayer", shared.ErrInvalidInput, "chat id must be positive")
	}
	name := strings.TrimSpace(params.DisplayName)
	if len(name) == 0 || len(name) > 100 {
		return nil, shared.NewDomainError("player", "NewPlayer", shared.ErrInvalidInput, "display name must be 1-100 chars")
	}
	if !params.Division.IsValid() {
		return nil, shared.ErrInvalidDivision
	}

	now := time.Now().UTC()
	return &Player{
		ID:          params.ID,
		ChatID:      params.ChatID,
		DisplayName: name,
		Rating:      DefaultRating,
		Division:    params.Division,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttendance resets the decay eligibility counter. The cumulative miss
// count is never decremented.
func (p *Player) RecordAttendance() {
	p.MissesSinceDecay = 0
	p.UpdatedAt = time.Now().UTC()
}

// RecordAbsence counts one unexcused miss.
func (p *Player) RecordAbsence() {
	p.UnexcusedMisses++
	p.MissesSinceDecay++
	p.UpdatedAt = time.Now().UTC()
}

// ResetDecayEligibility clears the decay counter after the penalty fires.
func (p *Player) ResetDecayEligibility() {
	p.MissesSinceDecay = 0
	p.UpdatedAt = time.Now().UTC()
}

// ApplyRatingChange moves the rating and refreshes the tier label.
func (p *Player) ApplyRatingChange(delta float64, tierName string) {
	p.Rating = p.Rating.Apply(delta)
	p.TierName = tierName
	p.UpdatedAt = time.Now().UTC()
}

// MoveToDivision reassigns the player during a reshuffle.
func (p *Player) MoveToDivision(d Division) error {
	if !d.IsValid() {
		return shared.ErrInvalidDivision
	}
	p.Division = d
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// StartSeason resets per-season aggregates, absence counts and decay
// eligibility. Misses are scoped to the season.
func (p *Player) StartSeason() {
	p.SeasonStats = SeasonStats{}
	p.UnexcusedMisses = 0
	p.MissesSinceDecay = 0
	p.UpdatedAt = time.Now().UTC()
}

// Retire removes the player from active play without deleting history.
func (p *Player) Retire() {
	p.Retired = true
	p.UpdatedAt = time.Now().UTC()
}

// Activate returns a retired player to active play.
func (p *Player) Activate() {
	p.Retired = false
	p.UpdatedAt = time.Now().UTC()
}

// String renders the player for logging.
func (p *Player) String() string {
	return fmt.Sprintf("Player{ID: %s, Name: %s, Rating: %.1f, Division: %d}",
		p.ID, p.DisplayName, float64(p.Rating), p.Division)
}

// Clone makes a shallow copy, which is sufficient because all fields are
// value types.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
