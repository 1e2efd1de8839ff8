package rating

import "context"

// SettingsRepository loads the immutable configuration snapshot consumed by
// one reveal or decay evaluation. Implementations return
// shared.ErrConfigMissing when a required key is absent; that error is fatal
// to the computation and not retried.
type SettingsRepository interface {
	Load(ctx context.Context) (Settings, error)
}

// ChangeRepository persists the append-only rating change records produced
// at reveal.
type ChangeRepository interface {
	SaveChanges(ctx context.Context, sessionID string, changes []Change) error
	ListBySession(ctx context.Context, sessionID string) ([]Change, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]Change, error)
}
