// Package season tracks the league's season boundary and the
// promotion/relegation cadence.
package season

import (
	"context"
	"strings"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// Season is the active competitive period. Exactly one season is active at a
// time; starting a new one closes the previous.
type Season struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// Name labels the season in standings output.
	Name string

	// PromotionWeek counts revealed sessions since the last divisions
	// reshuffle. When it reaches the cadence the reveal triggers a
	// reshuffle and the counter resets.
	PromotionWeek int

	// SessionsCompleted counts every revealed session of the season.
	SessionsCompleted int

	// Active is false once a later season has started.
	Active bool

	StartedAt time.Time
	EndedAt   time.Time
	UpdatedAt time.Time
}

// NewSeason opens a season with a fresh cadence counter.
func NewSeason(id, name string) (*Season, error) {
	if id == "" {
		return nil, shared.NewDomainError("season", "NewSeason", shared.ErrInvalidInput, "season id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("season", "NewSeason", shared.ErrInvalidInput, "season name is required")
	}
	now := time.Now().UTC()
	return &Season{
		ID:        id,
		Name:      name,
		Active:    true,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

// RecordReveal advances the cadence counter and reports whether this reveal
// is a reshuffle boundary. On a boundary the counter resets to zero.
func (s *Season) RecordReveal(cadence int) (reshuffle bool) {
	s.SessionsCompleted++
	s.PromotionWeek++
	s.UpdatedAt = time.Now().UTC()
	if cadence > 0 && s.PromotionWeek >= cadence {
		s.PromotionWeek = 0
		return true
	}
	return false
}

// Close marks the season finished.
func (s *Season) Close() {
	s.Active = false
	s.EndedAt = time.Now().UTC()
	s.UpdatedAt = s.EndedAt
}

// Repository defines the persistence contract for seasons.
type Repository interface {
	// Create persists a new season.
	Create(ctx context.Context, s *Season) error

	// GetActive returns the active season.
	// Returns shared.ErrNoActiveSeason when none exists.
	GetActive(ctx context.Context) (*Season, error)

	// Update persists a modified season.
	Update(ctx context.Context, s *Season) error
}
