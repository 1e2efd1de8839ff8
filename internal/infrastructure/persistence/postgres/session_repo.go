package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL.
// The registry holds the authoritative in-memory session; rows here are
// write-through snapshots used for restarts and audit.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

const sessionColumns = `id, group_name, season_id, state, event_multiplier,
	check_ins, submissions, payload, last_reminder_at,
	scheduled_for, created_at, updated_at`

// Save upserts the session from a snapshot.
func (r *SessionRepository) Save(ctx context.Context, snap session.Snapshot) error {
	checkIns, err := json.Marshal(snap.CheckIns)
	if err != nil {
		return fmt.Errorf("failed to marshal check-ins: %w", err)
	}
	submissions, err := json.Marshal(snap.Submissions)
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	var payload []byte
	if snap.Payload != nil {
		payload, err = json.Marshal(snap.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal reveal payload: %w", err)
		}
	}

	query := `
		INSERT INTO sessions (
			id, group_name, season_id, state, event_multiplier,
			check_ins, submissions, payload, last_reminder_at,
			scheduled_for, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			event_multiplier = EXCLUDED.event_multiplier,
			check_ins = EXCLUDED.check_ins,
			submissions = EXCLUDED.submissions,
			payload = EXCLUDED.payload,
			last_reminder_at = EXCLUDED.last_reminder_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.conn.Exec(ctx, query,
		snap.ID,
		snap.Group,
		snap.SeasonID,
		string(snap.State),
		snap.EventMultiplier,
		checkIns,
		submissions,
		payload,
		nullableTime(snap.LastReminderAt),
		snap.ScheduledFor,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// LoadActive returns the group's non-terminal session.
func (r *SessionRepository) LoadActive(ctx context.Context, group string) (*session.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE group_name = $1 AND state NOT IN ('revealed', 'cancelled')
	`, sessionColumns)

	row := r.conn.QueryRow(ctx, query, group)
	sess, err := r.scanSession(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoActiveSession
		}
		return nil, err
	}
	return sess, nil
}

// GetByID returns any session for audit queries.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	row := r.conn.QueryRow(ctx, query, id)
	sess, err := r.scanSession(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("session", "GetByID", shared.ErrNotFound, "session not found")
		}
		return nil, err
	}
	return sess, nil
}

// scanSession rebuilds a domain session from one row.
func (r *SessionRepository) scanSession(row pgx.Row) (*session.Session, error) {
	var snap session.Snapshot
	var state string
	var checkIns, submissions, payload []byte
	var lastReminderAt *time.Time

	err := row.Scan(
		&snap.ID,
		&snap.Group,
		&snap.SeasonID,
		&state,
		&snap.EventMultiplier,
		&checkIns,
		&submissions,
		&payload,
		&lastReminderAt,
		&snap.ScheduledFor,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.State = session.State(state)
	if !snap.State.IsValid() {
		return nil, fmt.Errorf("postgres: session %s has unknown state %q", snap.ID, state)
	}
	if lastReminderAt != nil {
		snap.LastReminderAt = *lastReminderAt
	}

	if err := json.Unmarshal(checkIns, &snap.CheckIns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal check-ins: %w", err)
	}
	if err := json.Unmarshal(submissions, &snap.Submissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submissions: %w", err)
	}
	if len(payload) > 0 {
		snap.Payload = &session.RevealPayload{}
		if err := json.Unmarshal(payload, snap.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reveal payload: %w", err)
		}
	}

	return session.Restore(snap), nil
}
