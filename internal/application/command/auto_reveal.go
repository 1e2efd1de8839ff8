package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTO-REVEAL SUBSCRIBER
// ══════════════════════════════════════════════════════════════════════════════

// DispatchFunc queues a group-scoped action for ordered execution. The
// infrastructure dispatcher satisfies this with a thin adapter.
type DispatchFunc func(group string, apply func(ctx context.Context) error) error

// NewAutoRevealSubscriber builds the event handler that reveals a session on
// its group's ordered queue once every attending player has both games in.
//
// A reveal that loses the race to a manual reveal is silently dropped. Any
// other failure is surfaced to the presentation layer as an error event
// before being returned to the dispatcher.
func NewAutoRevealSubscriber(reveal *RevealSessionHandler, publisher shared.EventPublisher, dispatch DispatchFunc) shared.EventHandler {
	return func(event shared.Event) error {
		ready, ok := event.(shared.RevealReadyEvent)
		if !ok {
			return nil
		}
		return dispatch(ready.GroupID, func(ctx context.Context) error {
			_, err := reveal.Handle(ctx, RevealSessionCommand{Group: ready.GroupID})
			if err != nil && !errors.Is(err, shared.ErrRevealConflict) {
				kind := "internal"
				var derr *shared.DomainError
				if errors.As(err, &derr) && derr.Kind != nil {
					kind = derr.Kind.Error()
				}
				_ = publisher.Publish(shared.NewErrorOccurredEvent(
					ready.AggregateID(), kind, "auto-reveal for group "+ready.GroupID))
				return fmt.Errorf("auto-reveal for group %q: %w", ready.GroupID, err)
			}
			return nil
		})
	}
}
