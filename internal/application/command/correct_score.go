package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CORRECT SCORE COMMAND
// Administrative override of a submission slot. Works after reveal, so it
// is guarded by two-step confirmation: the first call stages the correction
// and returns a token, the second call with the token applies it.
// ══════════════════════════════════════════════════════════════════════════════

// correctionTTL is how long a staged correction stays confirmable.
const correctionTTL = 2 * time.Minute

// CorrectScoreCommand contains the data to correct a score.
type CorrectScoreCommand struct {
	Group     string
	AdminID   string
	ChatID    player.ChatID
	GameIndex int
	NewScore  int

	// ConfirmToken applies a previously staged correction. Empty stages a
	// new one.
	ConfirmToken  string
	CorrelationID string
}

// Validate validates the command.
func (c CorrectScoreCommand) Validate() error {
	if c.Group == "" {
		return errors.New("correct_score: group is required")
	}
	if c.AdminID == "" {
		return errors.New("correct_score: admin id is required")
	}
	if c.ConfirmToken != "" {
		return nil
	}
	if !c.ChatID.IsValid() {
		return errors.New("correct_score: chat id is required")
	}
	if c.GameIndex != 1 && c.GameIndex != 2 {
		return errors.New("correct_score: game index must be 1 or 2")
	}
	return nil
}

// CorrectScoreResult contains the result of a correction request.
type CorrectScoreResult struct {
	// Staged is true when the correction awaits confirmation.
	Staged       bool
	ConfirmToken string
	ExpiresAt    time.Time

	// Applied fields, set once confirmed.
	Applied   bool
	SessionID string
	PlayerID  string
	GameIndex int
	NewScore  int
	OldScore  int
}

type stagedCorrection struct {
	group     string
	adminID   string
	playerID  string
	gameIndex int
	newScore  int
	expiresAt time.Time
}

// CorrectScoreHandler handles the CorrectScoreCommand.
type CorrectScoreHandler struct {
	registry    *registry.Registry
	playerRepo  player.Repository
	sessionRepo session.Repository
	publisher   shared.EventPublisher

	mu     sync.Mutex
	staged map[string]stagedCorrection
}

// NewCorrectScoreHandler creates a new CorrectScoreHandler.
func NewCorrectScoreHandler(
	reg *registry.Registry,
	playerRepo player.Repository,
	sessionRepo session.Repository,
	publisher shared.EventPublisher,
) *CorrectScoreHandler {
	return &CorrectScoreHandler{
		registry:    reg,
		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
		staged:      make(map[string]stagedCorrection),
	}
}

// Handle executes the correct score command.
func (h *CorrectScoreHandler) Handle(ctx context.Context, cmd CorrectScoreCommand) (*CorrectScoreResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("correct_score: validation failed: %w", err)
	}

	if cmd.ConfirmToken == "" {
		return h.stage(ctx, cmd)
	}
	return h.confirm(ctx, cmd)
}

func (h *CorrectScoreHandler) stage(ctx context.Context, cmd CorrectScoreCommand) (*CorrectScoreResult, error) {
	p, err := h.playerRepo.GetByChatID(ctx, cmd.ChatID)
	if err != nil {
		return nil, fmt.Errorf("correct_score: %w", err)
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(correctionTTL)

	h.mu.Lock()
	h.pruneLocked()
	h.staged[token] = stagedCorrection{
		group:     cmd.Group,
		adminID:   cmd.AdminID,
		playerID:  p.ID,
		gameIndex: cmd.GameIndex,
		newScore:  cmd.NewScore,
		expiresAt: expires,
	}
	h.mu.Unlock()

	return &CorrectScoreResult{
		Staged:       true,
		ConfirmToken: token,
		ExpiresAt:    expires,
		PlayerID:     p.ID,
		GameIndex:    cmd.GameIndex,
		NewScore:     cmd.NewScore,
	}, nil
}

func (h *CorrectScoreHandler) confirm(ctx context.Context, cmd CorrectScoreCommand) (*CorrectScoreResult, error) {
	h.mu.Lock()
	h.pruneLocked()
	staged, ok := h.staged[cmd.ConfirmToken]
	if ok {
		delete(h.staged, cmd.ConfirmToken)
	}
	h.mu.Unlock()

	if !ok {
		return nil, shared.NewDomainError("command", "CorrectScore", shared.ErrPrecondition, "no staged correction for token")
	}
	// Only the admin who staged it can confirm, and only for the same group.
	if staged.adminID != cmd.AdminID || staged.group != cmd.Group {
		return nil, shared.NewDomainError("command", "CorrectScore", shared.ErrPrecondition, "confirmation does not match the staged correction")
	}

	var (
		snap   session.Snapshot
		result CorrectScoreResult
	)
	err := h.registry.WithSession(staged.group, func(s *session.Session) error {
		var old int
		if sub, ok := s.Submissions[staged.playerID]; ok {
			if staged.gameIndex == 1 {
				old = sub.Game1
			} else {
				old = sub.Game2
			}
		}
		if err := s.Correct(staged.playerID, staged.gameIndex, staged.newScore); err != nil {
			return err
		}
		result = CorrectScoreResult{
			Applied:   true,
			SessionID: s.ID,
			PlayerID:  staged.playerID,
			GameIndex: staged.gameIndex,
			NewScore:  staged.newScore,
			OldScore:  old,
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("correct_score: failed to save session: %w", err)
	}

	event := shared.NewSubmissionRecordedEvent(snap.ID, staged.group, staged.playerID, staged.gameIndex, staged.newScore, string(snap.State))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &result, nil
}

// pruneLocked drops expired stagings. Caller holds h.mu.
func (h *CorrectScoreHandler) pruneLocked() {
	now := time.Now().UTC()
	for token, s := range h.staged {
		if now.After(s.expiresAt) {
			delete(h.staged, token)
		}
	}
}
