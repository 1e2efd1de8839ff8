// Package logger configures structured logging for Strike League Hub.
// All components log through log/slog; this package owns handler setup,
// level parsing, and the league-specific attribute helpers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatJSON emits one JSON object per line. Used in production.
	FormatJSON Format = "json"

	// FormatText emits human-readable key=value lines. Used in development.
	FormatText Format = "text"
)

// ParseLevel parses a string into a slog.Level. Unknown values map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat parses a string into a Format. Unknown values map to JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}

// Options configures the logger.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer

	// Level is the minimum level to emit.
	Level slog.Level

	// Format selects JSON or text encoding.
	Format Format

	// AddSource includes the caller file:line in each record.
	AddSource bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output: os.Stdout,
		Level:  slog.LevelInfo,
		Format: FormatJSON,
	}
}

// New creates a configured *slog.Logger.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == FormatText {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	}

	return slog.New(handler)
}

// Setup creates a logger and installs it as the process default, so code
// falling back to slog.Default() stays consistent.
func Setup(opts Options) *slog.Logger {
	l := New(opts)
	slog.SetDefault(l)
	return l
}

// League-specific attribute helpers. Using these keeps field names uniform
// across commands, jobs, and the HTTP layer.

func GroupID(id string) slog.Attr         { return slog.String("group", id) }
func SessionID(id string) slog.Attr       { return slog.String("session_id", id) }
func SeasonID(id string) slog.Attr        { return slog.String("season_id", id) }
func PlayerID(id string) slog.Attr        { return slog.String("player_id", id) }
func Division(d int) slog.Attr            { return slog.Int("division", d) }
func GameScore(score int) slog.Attr       { return slog.Int("score", score) }
func RatingDelta(delta float64) slog.Attr { return slog.Float64("rating_delta", delta) }
func Component(name string) slog.Attr     { return slog.String("component", name) }
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
func Latency(d time.Duration) slog.Attr { return slog.String("latency", d.String()) }
