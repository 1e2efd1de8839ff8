package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var got []shared.EventType
	err := bus.Subscribe(shared.EventRevealed, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewRevealedEvent("s1", "g1", nil)))
	require.NoError(t, bus.Publish(shared.NewReminderDueEvent("s1", "g1", nil)))

	assert.Equal(t, []shared.EventType{shared.EventRevealed}, got)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewRevealedEvent("s1", "g1", nil)))
	require.NoError(t, bus.Publish(shared.NewReminderDueEvent("s1", "g1", nil)))
	assert.Equal(t, 2, count)
}

func TestBus_ClosedRejectsPublish(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewRevealedEvent("s1", "g1", nil)), ErrEventBusClosed)
}

func TestBus_AsyncDrainsOnClose(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	handled := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewReminderDueEvent("s1", "g1", nil)))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, handled)
}

func TestDispatcher_OrderedPerGroup(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{QueueSize: 64})
	defer d.Close()

	var mu sync.Mutex
	order := make(map[string][]int)
	done := make(chan struct{}, 40)

	for i := 0; i < 20; i++ {
		i := i
		for _, group := range []string{"lane-7", "lane-9"} {
			group := group
			require.NoError(t, d.Dispatch(Inbound{
				Group: group,
				Apply: func(context.Context) error {
					mu.Lock()
					order[group] = append(order[group], i)
					mu.Unlock()
					done <- struct{}{}
					return nil
				},
			}))
		}
	}

	for i := 0; i < 40; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher stalled")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, group := range []string{"lane-7", "lane-9"} {
		require.Len(t, order[group], 20)
		for i, v := range order[group] {
			assert.Equal(t, i, v, "group %s out of order", group)
		}
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{QueueSize: 1})
	defer d.Close()

	block := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.Dispatch(Inbound{Group: "g", Apply: func(context.Context) error {
		close(block)
		<-release
		return nil
	}}))
	<-block

	// Worker is busy; one item fits the queue, the next is rejected.
	require.NoError(t, d.Dispatch(Inbound{Group: "g", Apply: func(context.Context) error { return nil }}))
	err := d.Dispatch(Inbound{Group: "g", Apply: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
}

func TestDispatcher_ClosedRejects(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	require.NoError(t, d.Close())
	err := d.Dispatch(Inbound{Group: "g", Apply: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestDispatcher_RejectsBadInbound(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Close()

	err := d.Dispatch(Inbound{Apply: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = d.Dispatch(Inbound{Group: "g"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
