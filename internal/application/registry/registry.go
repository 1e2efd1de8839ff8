// Package registry tracks the at-most-one non-terminal session per
// scheduling group and provides the per-session exclusion scope every
// handler runs under.
package registry

import (
	"sync"

	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// Handle pairs one session with its mutex. All reads and writes of the
// session go through WithSession so two concurrent submissions cannot both
// miss the activation latch and two reveals cannot both pass the readiness
// check.
type Handle struct {
	mu   sync.Mutex
	sess *session.Session
}

// WithSession runs fn with exclusive access to the session. fn must not
// perform I/O; it captures a snapshot and returns, keeping lock-hold time
// proportional to participant count.
func (h *Handle) WithSession(fn func(*session.Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.sess)
}

// Registry maps scheduling groups to their current session handle. The most
// recent terminal session stays registered until the next open-check-in, so
// a repeated reveal request still finds its payload.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Open installs a fresh session for the group, compare-and-swap style: it
// fails with ErrSessionAlreadyOpen when the group already has a non-terminal
// session, and atomically replaces a terminal one. build is called only when
// the swap will succeed.
func (r *Registry) Open(group string, build func() (*session.Session, error)) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[group]; ok {
		h.mu.Lock()
		terminal := h.sess.State.IsTerminal()
		h.mu.Unlock()
		if !terminal {
			return nil, shared.ErrSessionAlreadyOpen
		}
	}

	sess, err := build()
	if err != nil {
		return nil, err
	}
	h := &Handle{sess: sess}
	r.handles[group] = h
	return h, nil
}

// Get returns the group's handle, terminal or not.
// Returns ErrNoActiveSession when the group has never opened one.
func (r *Registry) Get(group string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[group]
	if !ok {
		return nil, shared.ErrNoActiveSession
	}
	return h, nil
}

// WithSession is the common path: resolve the group and run fn under the
// session's exclusion scope.
func (r *Registry) WithSession(group string, fn func(*session.Session) error) error {
	h, err := r.Get(group)
	if err != nil {
		return err
	}
	return h.WithSession(fn)
}

// Restore installs a session loaded from persistence at startup,
// unconditionally replacing whatever the group had.
func (r *Registry) Restore(group string, sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[group] = &Handle{sess: sess}
}

// Groups returns the groups with a registered handle, for timer sweeps.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handles))
	for g := range r.handles {
		out = append(out, g)
	}
	return out
}
