package command

import (
	"context"
	"sync"

	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/season"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// In-memory doubles for the persistence contracts. Everything copies on the
// way in and out so tests observe what was persisted, not shared pointers.

type fakePlayerRepo struct {
	mu      sync.Mutex
	players map[string]*player.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[string]*player.Player)}
}

func (r *fakePlayerRepo) Create(_ context.Context, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players {
		if existing.ChatID == p.ChatID {
			return shared.ErrPlayerAlreadyExists
		}
	}
	r.players[p.ID] = p.Clone()
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, id string) (*player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, shared.ErrUnknownParticipant
	}
	return p.Clone(), nil
}

func (r *fakePlayerRepo) GetByChatID(_ context.Context, chatID player.ChatID) (*player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.ChatID == chatID {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrUnknownParticipant
}

func (r *fakePlayerRepo) Update(_ context.Context, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.ID]; !ok {
		return shared.ErrUnknownParticipant
	}
	r.players[p.ID] = p.Clone()
	return nil
}

func (r *fakePlayerRepo) ListActive(_ context.Context) ([]*player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*player.Player
	for _, p := range r.players {
		if !p.Retired {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ListByDivision(_ context.Context, d player.Division) ([]*player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*player.Player
	for _, p := range r.players {
		if !p.Retired && p.Division == d {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) ExistsByChatID(_ context.Context, chatID player.ChatID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.ChatID == chatID {
			return true, nil
		}
	}
	return false, nil
}

type fakeSessionRepo struct {
	mu    sync.Mutex
	saves []session.Snapshot
}

func (r *fakeSessionRepo) Save(_ context.Context, snap session.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, snap)
	return nil
}

func (r *fakeSessionRepo) LoadActive(context.Context, string) (*session.Session, error) {
	return nil, shared.ErrNoActiveSession
}

func (r *fakeSessionRepo) GetByID(context.Context, string) (*session.Session, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeSessionRepo) last() session.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1]
}

type fakeSeasonRepo struct {
	mu     sync.Mutex
	active *season.Season
	closed []*season.Season
}

func (r *fakeSeasonRepo) Create(_ context.Context, s *season.Season) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = s
	return nil
}

func (r *fakeSeasonRepo) GetActive(context.Context) (*season.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || !r.active.Active {
		return nil, shared.ErrNoActiveSeason
	}
	return r.active, nil
}

func (r *fakeSeasonRepo) Update(_ context.Context, s *season.Season) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !s.Active {
		r.closed = append(r.closed, s)
	}
	return nil
}

type fakeSettingsRepo struct {
	settings rating.Settings
	err      error
}

func (r *fakeSettingsRepo) Load(context.Context) (rating.Settings, error) {
	if r.err != nil {
		return rating.Settings{}, r.err
	}
	return r.settings, nil
}

type fakeChangeRepo struct {
	mu      sync.Mutex
	changes map[string][]rating.Change
}

func newFakeChangeRepo() *fakeChangeRepo {
	return &fakeChangeRepo{changes: make(map[string][]rating.Change)}
}

func (r *fakeChangeRepo) SaveChanges(_ context.Context, sessionID string, changes []rating.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes[sessionID] = append(r.changes[sessionID], changes...)
	return nil
}

func (r *fakeChangeRepo) ListBySession(_ context.Context, sessionID string) ([]rating.Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[sessionID], nil
}

func (r *fakeChangeRepo) ListByPlayer(context.Context, string, int) ([]rating.Change, error) {
	return nil, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
