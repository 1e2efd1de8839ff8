package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/season"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEASON REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SeasonRepository implements season.Repository for PostgreSQL.
// A partial unique index guarantees at most one active row.
type SeasonRepository struct {
	conn *Connection
}

// NewSeasonRepository creates a new SeasonRepository.
func NewSeasonRepository(conn *Connection) *SeasonRepository {
	return &SeasonRepository{conn: conn}
}

// Create persists a new season.
func (r *SeasonRepository) Create(ctx context.Context, s *season.Season) error {
	query := `
		INSERT INTO seasons (
			id, name, promotion_week, sessions_completed, active,
			started_at, ended_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.Name,
		s.PromotionWeek,
		s.SessionsCompleted,
		s.Active,
		s.StartedAt,
		nullableTime(s.EndedAt),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}

	return nil
}

// GetActive returns the active season.
func (r *SeasonRepository) GetActive(ctx context.Context) (*season.Season, error) {
	query := `
		SELECT id, name, promotion_week, sessions_completed, active,
			   started_at, ended_at, updated_at
		FROM seasons
		WHERE active
	`

	var s season.Season
	var endedAt *time.Time
	err := r.conn.QueryRow(ctx, query).Scan(
		&s.ID,
		&s.Name,
		&s.PromotionWeek,
		&s.SessionsCompleted,
		&s.Active,
		&s.StartedAt,
		&endedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoActiveSeason
		}
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	if endedAt != nil {
		s.EndedAt = *endedAt
	}

	return &s, nil
}

// Update persists a modified season.
func (r *SeasonRepository) Update(ctx context.Context, s *season.Season) error {
	query := `
		UPDATE seasons SET
			name = $1,
			promotion_week = $2,
			sessions_completed = $3,
			active = $4,
			ended_at = $5,
			updated_at = $6
		WHERE id = $7
	`

	result, err := r.conn.Exec(ctx, query,
		s.Name,
		s.PromotionWeek,
		s.SessionsCompleted,
		s.Active,
		nullableTime(s.EndedAt),
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update season: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NewDomainError("season", "Update", shared.ErrNotFound, "season not found")
	}

	return nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
