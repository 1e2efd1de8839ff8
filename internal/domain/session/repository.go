package session

import "context"

// Repository defines the persistence contract for sessions. Implementations
// live in infrastructure/persistence.
type Repository interface {
	// Save upserts the session from a snapshot captured inside the
	// session's exclusion scope.
	Save(ctx context.Context, snap Snapshot) error

	// LoadActive returns the group's non-terminal session, used to rebuild
	// the registry on startup. Returns shared.ErrNoActiveSession when the
	// group has none.
	LoadActive(ctx context.Context, group string) (*Session, error)

	// GetByID returns any session for audit queries.
	GetByID(ctx context.Context, id string) (*Session, error)
}
