package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time

		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}

		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}

		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}

			insertQuery := fmt.Sprintf(
				"INSERT INTO %s (version, name) VALUES ($1, $2)",
				m.tableName,
			)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)

	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_players",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_seasons_and_sessions",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_rating_changes_and_settings",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS players (
	id TEXT PRIMARY KEY,
	chat_id BIGINT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	rating DOUBLE PRECISION NOT NULL,
	division INTEGER NOT NULL,
	tier_name TEXT NOT NULL DEFAULT '',
	unexcused_misses INTEGER NOT NULL DEFAULT 0,
	misses_since_decay INTEGER NOT NULL DEFAULT 0,
	retired BOOLEAN NOT NULL DEFAULT FALSE,
	sessions_played INTEGER NOT NULL DEFAULT 0,
	series_total INTEGER NOT NULL DEFAULT 0,
	high_game INTEGER NOT NULL DEFAULT 0,
	high_series INTEGER NOT NULL DEFAULT 0,
	bonus_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_players_division ON players (division) WHERE NOT retired;
CREATE INDEX IF NOT EXISTS idx_players_rating ON players (rating DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS players;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS seasons (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	promotion_week INTEGER NOT NULL DEFAULT 0,
	sessions_completed INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	started_at TIMESTAMP WITH TIME ZONE NOT NULL,
	ended_at TIMESTAMP WITH TIME ZONE,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_seasons_single_active ON seasons (active) WHERE active;

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	group_name TEXT NOT NULL,
	season_id TEXT NOT NULL REFERENCES seasons (id),
	state TEXT NOT NULL,
	event_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	check_ins JSONB NOT NULL DEFAULT '{}',
	submissions JSONB NOT NULL DEFAULT '{}',
	payload JSONB,
	last_reminder_at TIMESTAMP WITH TIME ZONE,
	scheduled_for TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_open_per_group
	ON sessions (group_name)
	WHERE state NOT IN ('revealed', 'cancelled');

CREATE INDEX IF NOT EXISTS idx_sessions_group_created ON sessions (group_name, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS sessions;
DROP TABLE IF EXISTS seasons;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS rating_changes (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions (id),
	player_id TEXT NOT NULL REFERENCES players (id),
	division INTEGER NOT NULL,
	series_total INTEGER NOT NULL,
	old_rating DOUBLE PRECISION NOT NULL,
	new_rating DOUBLE PRECISION NOT NULL,
	elo_delta DOUBLE PRECISION NOT NULL,
	bonus_delta DOUBLE PRECISION NOT NULL,
	bonus_details TEXT[] NOT NULL DEFAULT '{}',
	decay_delta DOUBLE PRECISION NOT NULL,
	old_tier TEXT NOT NULL DEFAULT '',
	new_tier TEXT NOT NULL DEFAULT '',
	tier_changed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rating_changes_session ON rating_changes (session_id);
CREATE INDEX IF NOT EXISTS idx_rating_changes_player ON rating_changes (player_id, created_at DESC);

CREATE TABLE IF NOT EXISTS league_settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	k_factor DOUBLE PRECISION NOT NULL,
	event_multiplier DOUBLE PRECISION NOT NULL,
	bonus_rules JSONB NOT NULL,
	tiers JSONB NOT NULL,
	activation_threshold INTEGER NOT NULL,
	reminder_interval_seconds INTEGER NOT NULL,
	reminder_throttle_seconds INTEGER NOT NULL,
	decay_threshold INTEGER NOT NULL,
	decay_penalty DOUBLE PRECISION NOT NULL,
	promotion_cadence INTEGER NOT NULL,
	promotion_count INTEGER NOT NULL,
	division_count INTEGER NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS league_settings;
DROP TABLE IF EXISTS rating_changes;
`
