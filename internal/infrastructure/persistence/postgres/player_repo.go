package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PlayerRepository implements player.Repository for PostgreSQL.
type PlayerRepository struct {
	conn *Connection
}

// NewPlayerRepository creates a new PlayerRepository.
func NewPlayerRepository(conn *Connection) *PlayerRepository {
	return &PlayerRepository{conn: conn}
}

const playerColumns = `id, chat_id, display_name, rating, division, tier_name,
	unexcused_misses, misses_since_decay, retired,
	sessions_played, series_total, high_game, high_series, bonus_earned,
	created_at, updated_at`

// Create registers a new player.
func (r *PlayerRepository) Create(ctx context.Context, p *player.Player) error {
	query := `
		INSERT INTO players (
			id, chat_id, display_name, rating, division, tier_name,
			unexcused_misses, misses_since_decay, retired,
			sessions_played, series_total, high_game, high_series, bonus_earned,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID,
		int64(p.ChatID),
		p.DisplayName,
		float64(p.Rating),
		int(p.Division),
		p.TierName,
		p.UnexcusedMisses,
		p.MissesSinceDecay,
		p.Retired,
		p.SeasonStats.SessionsPlayed,
		p.SeasonStats.SeriesTotal,
		p.SeasonStats.HighGame,
		p.SeasonStats.HighSeries,
		p.SeasonStats.BonusEarned,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrPlayerAlreadyExists
		}
		return fmt.Errorf("failed to create player: %w", err)
	}

	return nil
}

// GetByID returns a player by internal ID.
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*player.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE id = $1`, playerColumns)

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanPlayer(row)
}

// GetByChatID returns a player by chat platform ID.
func (r *PlayerRepository) GetByChatID(ctx context.Context, chatID player.ChatID) (*player.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE chat_id = $1`, playerColumns)

	row := r.conn.QueryRow(ctx, query, int64(chatID))
	return r.scanPlayer(row)
}

// Update persists a modified player.
func (r *PlayerRepository) Update(ctx context.Context, p *player.Player) error {
	query := `
		UPDATE players SET
			display_name = $1,
			rating = $2,
			division = $3,
			tier_name = $4,
			unexcused_misses = $5,
			misses_since_decay = $6,
			retired = $7,
			sessions_played = $8,
			series_total = $9,
			high_game = $10,
			high_series = $11,
			bonus_earned = $12,
			updated_at = $13
		WHERE id = $14
	`

	result, err := r.conn.Exec(ctx, query,
		p.DisplayName,
		float64(p.Rating),
		int(p.Division),
		p.TierName,
		p.UnexcusedMisses,
		p.MissesSinceDecay,
		p.Retired,
		p.SeasonStats.SessionsPlayed,
		p.SeasonStats.SeriesTotal,
		p.SeasonStats.HighGame,
		p.SeasonStats.HighSeries,
		p.SeasonStats.BonusEarned,
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrUnknownParticipant
	}

	return nil
}

// ListActive returns all non-retired players.
func (r *PlayerRepository) ListActive(ctx context.Context) ([]*player.Player, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM players
		WHERE NOT retired
		ORDER BY division, rating DESC
	`, playerColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active players: %w", err)
	}
	defer rows.Close()

	return r.scanPlayers(rows)
}

// ListByDivision returns non-retired players of one division, ordered by
// rating descending.
func (r *PlayerRepository) ListByDivision(ctx context.Context, d player.Division) ([]*player.Player, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM players
		WHERE NOT retired AND division = $1
		ORDER BY rating DESC
	`, playerColumns)

	rows, err := r.conn.Query(ctx, query, int(d))
	if err != nil {
		return nil, fmt.Errorf("failed to list division players: %w", err)
	}
	defer rows.Close()

	return r.scanPlayers(rows)
}

// ExistsByChatID reports whether a chat id is already registered.
func (r *PlayerRepository) ExistsByChatID(ctx context.Context, chatID player.ChatID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM players WHERE chat_id = $1)`,
		int64(chatID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check player existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *PlayerRepository) scanPlayer(row pgx.Row) (*player.Player, error) {
	var p player.Player
	var chatID int64
	var rating float64
	var division int

	err := row.Scan(
		&p.ID,
		&chatID,
		&p.DisplayName,
		&rating,
		&division,
		&p.TierName,
		&p.UnexcusedMisses,
		&p.MissesSinceDecay,
		&p.Retired,
		&p.SeasonStats.SessionsPlayed,
		&p.SeasonStats.SeriesTotal,
		&p.SeasonStats.HighGame,
		&p.SeasonStats.HighSeries,
		&p.SeasonStats.BonusEarned,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUnknownParticipant
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}

	p.ChatID = player.ChatID(chatID)
	p.Rating = player.Rating(rating)
	p.Division = player.Division(division)

	return &p, nil
}

func (r *PlayerRepository) scanPlayers(rows pgx.Rows) ([]*player.Player, error) {
	players := make([]*player.Player, 0)
	for rows.Next() {
		p, err := r.scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
