package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE CHECK-IN COMMAND
// Reaction-style attendance toggle. Idempotent: re-toggling to the same
// value changes nothing and publishes nothing.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleCheckInCommand contains the data to toggle a check-in.
type ToggleCheckInCommand struct {
	Group         string
	ChatID        player.ChatID
	Attending     bool
	CorrelationID string
}

// Validate validates the command.
func (c ToggleCheckInCommand) Validate() error {
	if c.Group == "" {
		return errors.New("toggle_checkin: group is required")
	}
	if !c.ChatID.IsValid() {
		return errors.New("toggle_checkin: chat id is required")
	}
	return nil
}

// ToggleCheckInResult contains the result of a toggle.
type ToggleCheckInResult struct {
	SessionID   string
	PlayerID    string
	Attending   bool
	Changed     bool
	Attendees   int
	RevealReady bool
}

// ToggleCheckInHandler handles the ToggleCheckInCommand.
type ToggleCheckInHandler struct {
	registry    *registry.Registry
	playerRepo  player.Repository
	sessionRepo session.Repository
	publisher   shared.EventPublisher
}

// NewToggleCheckInHandler creates a new ToggleCheckInHandler.
func NewToggleCheckInHandler(
	reg *registry.Registry,
	playerRepo player.Repository,
	sessionRepo session.Repository,
	publisher shared.EventPublisher,
) *ToggleCheckInHandler {
	return &ToggleCheckInHandler{
		registry:    reg,
		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
	}
}

// Handle executes the toggle check-in command.
func (h *ToggleCheckInHandler) Handle(ctx context.Context, cmd ToggleCheckInCommand) (*ToggleCheckInResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("toggle_checkin: validation failed: %w", err)
	}

	p, err := h.playerRepo.GetByChatID(ctx, cmd.ChatID)
	if err != nil {
		return nil, fmt.Errorf("toggle_checkin: %w", err)
	}

	var (
		snap   session.Snapshot
		result ToggleCheckInResult
	)
	err = h.registry.WithSession(cmd.Group, func(s *session.Session) error {
		changed, ready, err := s.ToggleCheckIn(p.ID, cmd.Attending)
		if err != nil {
			return err
		}
		result = ToggleCheckInResult{
			SessionID:   s.ID,
			PlayerID:    p.ID,
			Attending:   cmd.Attending,
			Changed:     changed,
			Attendees:   len(s.AttendingPlayers()),
			RevealReady: ready,
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Changed {
		return &result, nil
	}

	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("toggle_checkin: failed to save session: %w", err)
	}

	event := shared.NewCheckInUpdatedEvent(snap.ID, cmd.Group, p.ID, cmd.Attending, result.Attendees)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	if result.RevealReady {
		_ = h.publisher.Publish(shared.NewRevealReadyEvent(snap.ID, cmd.Group, result.Attendees))
	}

	return &result, nil
}
