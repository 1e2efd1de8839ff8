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
// SUBMIT SCORE COMMAND
// Fills the player's next empty game slot. May fire the activation latch or
// complete the readiness set; both are evaluated inside the session's
// exclusion scope so concurrent submissions cannot race past the threshold.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitScoreCommand contains the data to submit a game score.
type SubmitScoreCommand struct {
	Group         string
	ChatID        player.ChatID
	Score         int
	CorrelationID string
}

// Validate validates the command. Score range is enforced by the session so
// the domain error kind reaches the caller.
func (c SubmitScoreCommand) Validate() error {
	if c.Group == "" {
		return errors.New("submit_score: group is required")
	}
	if !c.ChatID.IsValid() {
		return errors.New("submit_score: chat id is required")
	}
	return nil
}

// SubmitScoreResult contains the result of a submission.
type SubmitScoreResult struct {
	SessionID   string
	PlayerID    string
	GameIndex   int
	Score       int
	Activated   bool
	RevealReady bool
	State       session.State
}

// SubmitScoreHandler handles the SubmitScoreCommand.
type SubmitScoreHandler struct {
	registry    *registry.Registry
	playerRepo  player.Repository
	sessionRepo session.Repository
	publisher   shared.EventPublisher
}

// NewSubmitScoreHandler creates a new SubmitScoreHandler.
func NewSubmitScoreHandler(
	reg *registry.Registry,
	playerRepo player.Repository,
	sessionRepo session.Repository,
	publisher shared.EventPublisher,
) *SubmitScoreHandler {
	return &SubmitScoreHandler{
		registry:    reg,
		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
	}
}

// Handle executes the submit score command.
func (h *SubmitScoreHandler) Handle(ctx context.Context, cmd SubmitScoreCommand) (*SubmitScoreResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_score: validation failed: %w", err)
	}

	p, err := h.playerRepo.GetByChatID(ctx, cmd.ChatID)
	if err != nil {
		return nil, fmt.Errorf("submit_score: %w", err)
	}

	var (
		snap   session.Snapshot
		result SubmitScoreResult
	)
	err = h.registry.WithSession(cmd.Group, func(s *session.Session) error {
		res, err := s.Submit(p.ID, cmd.Score)
		if err != nil {
			return err
		}
		result = SubmitScoreResult{
			SessionID:   s.ID,
			PlayerID:    p.ID,
			GameIndex:   res.GameIndex,
			Score:       cmd.Score,
			Activated:   res.Activated,
			RevealReady: res.RevealReady,
			State:       s.State,
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("submit_score: failed to save session: %w", err)
	}

	event := shared.NewSubmissionRecordedEvent(snap.ID, cmd.Group, p.ID, result.GameIndex, cmd.Score, string(result.State))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	if result.Activated {
		_ = h.publisher.Publish(shared.NewActivationReachedEvent(snap.ID, cmd.Group, gameOneCount(snap)))
	}
	if result.RevealReady {
		_ = h.publisher.Publish(shared.NewRevealReadyEvent(snap.ID, cmd.Group, len(snap.CheckIns)))
	}

	return &result, nil
}

func gameOneCount(snap session.Snapshot) int {
	n := 0
	for _, sub := range snap.Submissions {
		if sub.Game1Set {
			n++
		}
	}
	return n
}
