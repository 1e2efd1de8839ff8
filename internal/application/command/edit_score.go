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
// EDIT SCORE COMMAND
// Overwrites one of the player's own submission slots. Permitted until
// reveal; an edit can complete the readiness set.
// ══════════════════════════════════════════════════════════════════════════════

// EditScoreCommand contains the data to edit a submitted score.
type EditScoreCommand struct {
	Group         string
	ChatID        player.ChatID
	GameIndex     int
	NewScore      int
	CorrelationID string
}

// Validate validates the command.
func (c EditScoreCommand) Validate() error {
	if c.Group == "" {
		return errors.New("edit_score: group is required")
	}
	if !c.ChatID.IsValid() {
		return errors.New("edit_score: chat id is required")
	}
	if c.GameIndex != 1 && c.GameIndex != 2 {
		return errors.New("edit_score: game index must be 1 or 2")
	}
	return nil
}

// EditScoreResult contains the result of an edit.
type EditScoreResult struct {
	SessionID   string
	PlayerID    string
	GameIndex   int
	NewScore    int
	RevealReady bool
	State       session.State
}

// EditScoreHandler handles the EditScoreCommand.
type EditScoreHandler struct {
	registry    *registry.Registry
	playerRepo  player.Repository
	sessionRepo session.Repository
	publisher   shared.EventPublisher
}

// NewEditScoreHandler creates a new EditScoreHandler.
func NewEditScoreHandler(
	reg *registry.Registry,
	playerRepo player.Repository,
	sessionRepo session.Repository,
	publisher shared.EventPublisher,
) *EditScoreHandler {
	return &EditScoreHandler{
		registry:    reg,
		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
	}
}

// Handle executes the edit score command.
func (h *EditScoreHandler) Handle(ctx context.Context, cmd EditScoreCommand) (*EditScoreResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("edit_score: validation failed: %w", err)
	}

	p, err := h.playerRepo.GetByChatID(ctx, cmd.ChatID)
	if err != nil {
		return nil, fmt.Errorf("edit_score: %w", err)
	}

	var (
		snap   session.Snapshot
		result EditScoreResult
	)
	err = h.registry.WithSession(cmd.Group, func(s *session.Session) error {
		ready, err := s.Edit(p.ID, cmd.GameIndex, cmd.NewScore)
		if err != nil {
			return err
		}
		result = EditScoreResult{
			SessionID:   s.ID,
			PlayerID:    p.ID,
			GameIndex:   cmd.GameIndex,
			NewScore:    cmd.NewScore,
			RevealReady: ready,
			State:       s.State,
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("edit_score: failed to save session: %w", err)
	}

	event := shared.NewSubmissionRecordedEvent(snap.ID, cmd.Group, p.ID, cmd.GameIndex, cmd.NewScore, string(result.State))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	if result.RevealReady {
		_ = h.publisher.Publish(shared.NewRevealReadyEvent(snap.ID, cmd.Group, len(snap.CheckIns)))
	}

	return &result, nil
}
