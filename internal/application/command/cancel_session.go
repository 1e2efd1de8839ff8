package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL SESSION COMMAND
// Administrative cancellation. Mutually exclusive with reveal: when both
// race, exactly one wins and the loser gets a conflict error. Check-ins and
// submissions stay on record, no rating changes are ever produced.
// ══════════════════════════════════════════════════════════════════════════════

// CancelSessionCommand contains the data to cancel a session.
type CancelSessionCommand struct {
	Group         string
	AdminID       string
	Reason        string
	CorrelationID string
}

// Validate validates the command.
func (c CancelSessionCommand) Validate() error {
	if c.Group == "" {
		return errors.New("cancel_session: group is required")
	}
	if c.AdminID == "" {
		return errors.New("cancel_session: admin id is required")
	}
	return nil
}

// CancelSessionResult contains the result of a cancellation.
type CancelSessionResult struct {
	SessionID string
	State     session.State
}

// CancelSessionHandler handles the CancelSessionCommand.
type CancelSessionHandler struct {
	registry    *registry.Registry
	sessionRepo session.Repository
	publisher   shared.EventPublisher
}

// NewCancelSessionHandler creates a new CancelSessionHandler.
func NewCancelSessionHandler(
	reg *registry.Registry,
	sessionRepo session.Repository,
	publisher shared.EventPublisher,
) *CancelSessionHandler {
	return &CancelSessionHandler{
		registry:    reg,
		sessionRepo: sessionRepo,
		publisher:   publisher,
	}
}

// Handle executes the cancel session command.
func (h *CancelSessionHandler) Handle(ctx context.Context, cmd CancelSessionCommand) (*CancelSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("cancel_session: validation failed: %w", err)
	}

	var snap session.Snapshot
	err := h.registry.WithSession(cmd.Group, func(s *session.Session) error {
		if err := s.Cancel(); err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("cancel_session: failed to save session: %w", err)
	}

	event := shared.NewSessionCancelledEvent(snap.ID, cmd.Group, cmd.Reason)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &CancelSessionResult{SessionID: snap.ID, State: snap.State}, nil
}
