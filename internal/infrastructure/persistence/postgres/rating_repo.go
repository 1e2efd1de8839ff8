package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATING CHANGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RatingChangeRepository implements rating.ChangeRepository for PostgreSQL.
// Rows are append-only; a reveal writes its whole batch in one transaction.
type RatingChangeRepository struct {
	conn *Connection
}

// NewRatingChangeRepository creates a new RatingChangeRepository.
func NewRatingChangeRepository(conn *Connection) *RatingChangeRepository {
	return &RatingChangeRepository{conn: conn}
}

// SaveChanges persists one reveal's change batch.
func (r *RatingChangeRepository) SaveChanges(ctx context.Context, sessionID string, changes []rating.Change) error {
	if len(changes) == 0 {
		return nil
	}

	query := `
		INSERT INTO rating_changes (
			session_id, player_id, division, series_total,
			old_rating, new_rating, elo_delta, bonus_delta, bonus_details,
			decay_delta, old_tier, new_tier, tier_changed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		for _, c := range changes {
			details := c.BonusDetails
			if details == nil {
				details = []string{}
			}
			_, err := tx.Exec(ctx, query,
				sessionID,
				c.PlayerID,
				c.Division,
				c.SeriesTotal,
				c.OldRating,
				c.NewRating,
				c.EloDelta,
				c.BonusDelta,
				details,
				c.DecayDelta,
				c.OldTier,
				c.NewTier,
				c.TierChanged,
			)
			if err != nil {
				return fmt.Errorf("failed to save rating change for %s: %w", c.PlayerID, err)
			}
		}
		return nil
	})
}

// ListBySession returns the change batch of one session.
func (r *RatingChangeRepository) ListBySession(ctx context.Context, sessionID string) ([]rating.Change, error) {
	query := `
		SELECT player_id, division, series_total,
			   old_rating, new_rating, elo_delta, bonus_delta, bonus_details,
			   decay_delta, old_tier, new_tier, tier_changed
		FROM rating_changes
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session changes: %w", err)
	}
	defer rows.Close()

	return scanChanges(rows)
}

// ListByPlayer returns a player's most recent changes, newest first.
func (r *RatingChangeRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]rating.Change, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT player_id, division, series_total,
			   old_rating, new_rating, elo_delta, bonus_delta, bonus_details,
			   decay_delta, old_tier, new_tier, tier_changed
		FROM rating_changes
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list player changes: %w", err)
	}
	defer rows.Close()

	return scanChanges(rows)
}

func scanChanges(rows pgx.Rows) ([]rating.Change, error) {
	changes := make([]rating.Change, 0)
	for rows.Next() {
		var c rating.Change
		err := rows.Scan(
			&c.PlayerID,
			&c.Division,
			&c.SeriesTotal,
			&c.OldRating,
			&c.NewRating,
			&c.EloDelta,
			&c.BonusDelta,
			&c.BonusDetails,
			&c.DecayDelta,
			&c.OldTier,
			&c.NewTier,
			&c.TierChanged,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
