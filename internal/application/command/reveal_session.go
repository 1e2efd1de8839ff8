package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/season"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVEAL SESSION COMMAND
// The single irrevocable action: computes rating changes, applies absence
// decay, advances the promotion cadence, and marks the session revealed.
// Idempotent: revealing an already revealed session returns the stored
// payload unchanged.
//
// Configuration and player state are loaded outside the session's exclusion
// scope; the state is re-checked and the computation committed inside it, so
// lock-hold time stays proportional to participant count.
// ══════════════════════════════════════════════════════════════════════════════

// RevealSessionCommand contains the data to reveal a session.
type RevealSessionCommand struct {
	Group string

	// Force permits reveal before the readiness condition holds.
	Force bool

	CorrelationID string
}

// Validate validates the command.
func (c RevealSessionCommand) Validate() error {
	if c.Group == "" {
		return errors.New("reveal_session: group is required")
	}
	return nil
}

// RevealSessionResult contains the reveal payload and what it changed.
type RevealSessionResult struct {
	Payload *session.RevealPayload

	// AlreadyRevealed is true when this call found the stored payload
	// instead of computing one.
	AlreadyRevealed bool

	// Reshuffled is true when this reveal hit the promotion cadence.
	Reshuffled bool
}

// RevealSessionHandler handles the RevealSessionCommand.
type RevealSessionHandler struct {
	registry     *registry.Registry
	sessionRepo  session.Repository
	playerRepo   player.Repository
	seasonRepo   season.Repository
	settingsRepo rating.SettingsRepository
	changeRepo   rating.ChangeRepository
	publisher    shared.EventPublisher
}

// NewRevealSessionHandler creates a new RevealSessionHandler.
func NewRevealSessionHandler(
	reg *registry.Registry,
	sessionRepo session.Repository,
	playerRepo player.Repository,
	seasonRepo season.Repository,
	settingsRepo rating.SettingsRepository,
	changeRepo rating.ChangeRepository,
	publisher shared.EventPublisher,
) *RevealSessionHandler {
	return &RevealSessionHandler{
		registry:     reg,
		sessionRepo:  sessionRepo,
		playerRepo:   playerRepo,
		seasonRepo:   seasonRepo,
		settingsRepo: settingsRepo,
		changeRepo:   changeRepo,
		publisher:    publisher,
	}
}

// Handle executes the reveal session command.
func (h *RevealSessionHandler) Handle(ctx context.Context, cmd RevealSessionCommand) (*RevealSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reveal_session: validation failed: %w", err)
	}

	handle, err := h.registry.Get(cmd.Group)
	if err != nil {
		return nil, err
	}

	// First pass: precondition check and early idempotent return.
	var existing *session.RevealPayload
	err = handle.WithSession(func(s *session.Session) error {
		if err := s.CanReveal(cmd.Force); err != nil {
			return err
		}
		existing = s.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &RevealSessionResult{Payload: existing, AlreadyRevealed: true}, nil
	}

	// I/O outside the exclusion scope. The one-active-session invariant
	// guarantees no concurrent reveal mutates these players.
	settings, err := h.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reveal_session: %w", err)
	}
	allPlayers, err := h.playerRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("reveal_session: failed to load players: %w", err)
	}
	szn, err := h.seasonRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("reveal_session: %w", err)
	}

	byID := make(map[string]*player.Player, len(allPlayers))
	for _, p := range allPlayers {
		byID[p.ID] = p
	}

	// Second pass: re-check state, compute, and commit atomically.
	var (
		snap       session.Snapshot
		payload    *session.RevealPayload
		reshuffled bool
		promoted   []string
		relegated  []string
	)
	err = handle.WithSession(func(s *session.Session) error {
		if err := s.CanReveal(cmd.Force); err != nil {
			return err
		}
		if s.Payload != nil {
			payload = s.Payload
			return nil
		}

		effective := settings.WithEventMultiplier(s.EventMultiplier)

		scores := make([]rating.PlayerScore, 0, len(s.Submissions))
		for playerID, sub := range s.CompleteScores() {
			p, ok := byID[playerID]
			if !ok {
				return shared.ErrUnknownParticipant
			}
			scores = append(scores, rating.PlayerScore{
				PlayerID: playerID,
				Division: int(p.Division),
				Game1:    sub.Game1,
				Game2:    sub.Game2,
				Rating:   float64(p.Rating),
			})
		}

		changes, err := rating.ComputeReveal(scores, effective)
		if err != nil {
			return err
		}

		byDivision := make(map[int][]rating.Change)
		for _, c := range changes {
			byDivision[c.Division] = append(byDivision[c.Division], c)
		}

		// Apply results and season stats to the participants.
		for _, c := range changes {
			p := byID[c.PlayerID]
			sub := s.Submissions[c.PlayerID]
			p.ApplyRatingChange(c.TotalDelta(), c.NewTier)
			p.SeasonStats.RecordSeries(sub.Game1, sub.Game2, c.BonusDelta)
		}

		// Absence pass: every active player without an attending check-in
		// accrues a miss; the flat penalty fires once past the threshold.
		attending := s.AttendingPlayers()
		var decayChanges []rating.Change
		for _, p := range allPlayers {
			if attending[p.ID] {
				p.RecordAttendance()
				continue
			}
			p.RecordAbsence()
			penalty, fired := rating.AbsenceDecay(p.MissesSinceDecay, effective.DecayThreshold, effective.DecayPenalty)
			if !fired {
				continue
			}
			dc := rating.DecayChange(p.ID, int(p.Division), float64(p.Rating), penalty, effective.Tiers)
			p.ApplyRatingChange(penalty, dc.NewTier)
			p.ResetDecayEligibility()
			decayChanges = append(decayChanges, dc)
		}

		payload = &session.RevealPayload{
			SessionID:    s.ID,
			RevealedAt:   time.Now().UTC(),
			Forced:       cmd.Force && s.State != session.StateAwaitingReveal,
			Changes:      byDivision,
			DecayChanges: decayChanges,
		}

		// Promotion cadence, evaluated on post-reveal ratings of every
		// active player.
		if szn.RecordReveal(effective.PromotionCadence) {
			reshuffled = true
			standings := make([]rating.Standing, 0, len(allPlayers))
			for _, p := range allPlayers {
				standings = append(standings, rating.Standing{
					PlayerID: p.ID,
					Division: int(p.Division),
					Rating:   float64(p.Rating),
				})
			}
			moves := rating.ComputePromotions(standings, effective)
			for _, m := range moves {
				if err := byID[m.PlayerID].MoveToDivision(player.Division(m.To)); err != nil {
					return err
				}
				if m.Promoted {
					promoted = append(promoted, m.PlayerID)
				} else {
					relegated = append(relegated, m.PlayerID)
				}
			}
			payload.Promotions = moves
		}

		if err := s.MarkRevealed(payload); err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snap.ID == "" {
		// Lost the idempotency race inside the second pass.
		return &RevealSessionResult{Payload: payload, AlreadyRevealed: true}, nil
	}

	// Persistence outside the exclusion scope, from data captured inside it.
	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("reveal_session: failed to save session: %w", err)
	}
	if err := h.changeRepo.SaveChanges(ctx, snap.ID, payload.AllChanges()); err != nil {
		return nil, fmt.Errorf("reveal_session: failed to save rating changes: %w", err)
	}
	for _, p := range allPlayers {
		if err := h.playerRepo.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("reveal_session: failed to update player %s: %w", p.ID, err)
		}
	}
	if err := h.seasonRepo.Update(ctx, szn); err != nil {
		return nil, fmt.Errorf("reveal_session: failed to update season: %w", err)
	}

	event := shared.NewRevealedEvent(snap.ID, cmd.Group, payload)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)
	if reshuffled {
		_ = h.publisher.Publish(shared.NewDivisionsReshuffledEvent(szn.ID, promoted, relegated))
	}

	return &RevealSessionResult{Payload: payload, Reshuffled: reshuffled}, nil
}
