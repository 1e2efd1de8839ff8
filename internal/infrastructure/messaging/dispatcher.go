package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INBOUND DISPATCHER
// Chat-platform callbacks arrive on whatever goroutine the transport uses.
// The dispatcher gives each scheduling group its own FIFO queue and worker,
// so a group's check-ins, submissions, and reveal requests apply in arrival
// order while unrelated groups proceed independently.
// ══════════════════════════════════════════════════════════════════════════════

// Inbound is one external action bound for a group's session.
type Inbound struct {
	Group string
	// Apply runs on the group's worker goroutine.
	Apply func(ctx context.Context) error
}

// Dispatcher routes inbound actions to per-group ordered queues.
type Dispatcher struct {
	mu        sync.Mutex
	queues    map[string]chan Inbound
	queueSize int
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// DispatcherConfig contains configuration for the dispatcher.
type DispatcherConfig struct {
	// QueueSize bounds each group's backlog. A full queue rejects rather
	// than blocks the transport callback.
	QueueSize int

	Logger *slog.Logger
}

// NewDispatcher creates a dispatcher. Workers spawn lazily per group.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queues:    make(map[string]chan Inbound),
		queueSize: config.QueueSize,
		logger:    config.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Dispatch enqueues an action on its group's queue.
func (d *Dispatcher) Dispatch(in Inbound) error {
	if in.Group == "" {
		return fmt.Errorf("dispatch: empty group: %w", shared.ErrInvalidInput)
	}
	if in.Apply == nil {
		return fmt.Errorf("dispatch: nil apply func: %w", shared.ErrInvalidInput)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	q, ok := d.queues[in.Group]
	if !ok {
		q = make(chan Inbound, d.queueSize)
		d.queues[in.Group] = q
		d.wg.Add(1)
		go d.worker(in.Group, q)
	}
	d.mu.Unlock()

	select {
	case q <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// worker drains one group's queue in order.
func (d *Dispatcher) worker(group string, q chan Inbound) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case in, ok := <-q:
			if !ok {
				return
			}
			if err := in.Apply(d.ctx); err != nil {
				d.logger.Error("inbound action failed", "group", group, "error", err)
			}
		}
	}
}

// Close stops accepting actions and waits for workers to finish their
// current item. Queued actions are dropped.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	return nil
}
