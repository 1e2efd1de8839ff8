package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

func newOpenSession(t *testing.T, id string) *session.Session {
	t.Helper()
	s, err := session.New(id, "lane-7", "season-1", time.Now(), 1.0)
	require.NoError(t, err)
	require.NoError(t, s.OpenCheckIn())
	return s
}

func TestOpen_RejectsSecondActive(t *testing.T) {
	r := New()

	_, err := r.Open("lane-7", func() (*session.Session, error) {
		return newOpenSession(t, "s1"), nil
	})
	require.NoError(t, err)

	_, err = r.Open("lane-7", func() (*session.Session, error) {
		return newOpenSession(t, "s2"), nil
	})
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyOpen)

	// Other groups are unaffected.
	_, err = r.Open("lane-9", func() (*session.Session, error) {
		return newOpenSession(t, "s3"), nil
	})
	assert.NoError(t, err)
}

func TestOpen_ReplacesTerminal(t *testing.T) {
	r := New()
	_, err := r.Open("lane-7", func() (*session.Session, error) {
		return newOpenSession(t, "s1"), nil
	})
	require.NoError(t, err)

	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		return s.Cancel()
	}))

	_, err = r.Open("lane-7", func() (*session.Session, error) {
		return newOpenSession(t, "s2"), nil
	})
	require.NoError(t, err)

	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		assert.Equal(t, "s2", s.ID)
		return nil
	}))
}

func TestWithSession_UnknownGroup(t *testing.T) {
	r := New()
	err := r.WithSession("nowhere", func(*session.Session) error { return nil })
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)
}

func TestTerminalHandleStaysForIdempotentReveal(t *testing.T) {
	r := New()
	_, err := r.Open("lane-7", func() (*session.Session, error) {
		return newOpenSession(t, "s1"), nil
	})
	require.NoError(t, err)

	payload := &session.RevealPayload{SessionID: "s1"}
	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		return s.MarkRevealed(payload)
	}))

	// The revealed session remains addressable.
	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		assert.Equal(t, session.StateRevealed, s.State)
		assert.Same(t, payload, s.Payload)
		return nil
	}))
}

func TestConcurrentSubmissions_LatchFiresOnce(t *testing.T) {
	r := New()
	_, err := r.Open("lane-7", func() (*session.Session, error) {
		return newOpenSession(t, "s1"), nil
	})
	require.NoError(t, err)

	const players = 10
	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		for i := 0; i < players; i++ {
			if _, _, err := s.ToggleCheckIn(fmt.Sprintf("p%d", i), true); err != nil {
				return err
			}
		}
		return nil
	}))

	var wg sync.WaitGroup
	activations := make(chan struct{}, players)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.WithSession("lane-7", func(s *session.Session) error {
				res, err := s.Submit(fmt.Sprintf("p%d", i), 150)
				if err == nil && res.Activated {
					activations <- struct{}{}
				}
				return err
			})
		}(i)
	}
	wg.Wait()
	close(activations)

	count := 0
	for range activations {
		count++
	}
	assert.Equal(t, 1, count, "exactly one submission observes the latch firing")
}

func TestConcurrentRevealCancel_OneWins(t *testing.T) {
	r := New()
	_, err := r.Open("lane-7", func() (*session.Session, error) {
		s := newOpenSession(t, "s1")
		s.SetActivationThreshold(1)
		return s, nil
	})
	require.NoError(t, err)

	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		if _, _, err := s.ToggleCheckIn("a", true); err != nil {
			return err
		}
		if _, err := s.Submit("a", 180); err != nil {
			return err
		}
		_, err := s.Submit("a", 190)
		return err
	}))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- r.WithSession("lane-7", func(s *session.Session) error {
			if err := s.CanReveal(false); err != nil {
				return err
			}
			return s.MarkRevealed(&session.RevealPayload{SessionID: s.ID})
		})
	}()
	go func() {
		defer wg.Done()
		results <- r.WithSession("lane-7", func(s *session.Session) error {
			return s.Cancel()
		})
	}()
	wg.Wait()
	close(results)

	conflicts := 0
	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrRevealConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one side loses the race")

	require.NoError(t, r.WithSession("lane-7", func(s *session.Session) error {
		assert.True(t, s.State.IsTerminal())
		return nil
	}))
}

func TestGroups(t *testing.T) {
	r := New()
	assert.Empty(t, r.Groups())

	for _, g := range []string{"a", "b"} {
		_, err := r.Open(g, func() (*session.Session, error) {
			return newOpenSession(t, "s-"+g), nil
		})
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, r.Groups())
}
