// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/season"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN CHECK-IN COMMAND
// Opens the evening's session for a scheduling group. Fails when the group
// already has a non-terminal session.
// ══════════════════════════════════════════════════════════════════════════════

// OpenCheckInCommand contains the data to open a session.
type OpenCheckInCommand struct {
	// Group is the scheduling group (one league community).
	Group string

	// ScheduledFor is the session date (defaults to now if zero).
	ScheduledFor time.Time

	// EventMultiplier scales the Elo component; zero means the configured
	// default.
	EventMultiplier float64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c OpenCheckInCommand) Validate() error {
	if c.Group == "" {
		return errors.New("open_checkin: group is required")
	}
	if c.EventMultiplier < 0 {
		return errors.New("open_checkin: event multiplier cannot be negative")
	}
	return nil
}

// OpenCheckInResult contains the result of opening check-in.
type OpenCheckInResult struct {
	SessionID    string
	SeasonID     string
	ScheduledFor time.Time
	OpenedAt     time.Time
}

// OpenCheckInHandler handles the OpenCheckInCommand.
type OpenCheckInHandler struct {
	registry     *registry.Registry
	sessionRepo  session.Repository
	seasonRepo   season.Repository
	settingsRepo rating.SettingsRepository
	publisher    shared.EventPublisher
}

// NewOpenCheckInHandler creates a new OpenCheckInHandler.
func NewOpenCheckInHandler(
	reg *registry.Registry,
	sessionRepo session.Repository,
	seasonRepo season.Repository,
	settingsRepo rating.SettingsRepository,
	publisher shared.EventPublisher,
) *OpenCheckInHandler {
	return &OpenCheckInHandler{
		registry:     reg,
		sessionRepo:  sessionRepo,
		seasonRepo:   seasonRepo,
		settingsRepo: settingsRepo,
		publisher:    publisher,
	}
}

// Handle executes the open check-in command.
func (h *OpenCheckInHandler) Handle(ctx context.Context, cmd OpenCheckInCommand) (*OpenCheckInResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("open_checkin: validation failed: %w", err)
	}

	szn, err := h.seasonRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("open_checkin: %w", err)
	}

	settings, err := h.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open_checkin: %w", err)
	}

	scheduledFor := cmd.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = time.Now().UTC()
	}
	multiplier := cmd.EventMultiplier
	if multiplier == 0 {
		multiplier = settings.EventMultiplier
	}

	var snap session.Snapshot
	handle, err := h.registry.Open(cmd.Group, func() (*session.Session, error) {
		sess, err := session.New(uuid.NewString(), cmd.Group, szn.ID, scheduledFor, multiplier)
		if err != nil {
			return nil, err
		}
		sess.SetActivationThreshold(settings.ActivationThreshold)
		if err := sess.OpenCheckIn(); err != nil {
			return nil, err
		}
		return sess, nil
	})
	if err != nil {
		return nil, err
	}

	_ = handle.WithSession(func(s *session.Session) error {
		snap = s.Snapshot()
		return nil
	})

	// Persistence and publication happen outside the exclusion scope.
	if err := h.sessionRepo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("open_checkin: failed to save session: %w", err)
	}

	event := shared.NewCheckInOpenedEvent(snap.ID, cmd.Group, szn.ID, scheduledFor)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &OpenCheckInResult{
		SessionID:    snap.ID,
		SeasonID:     szn.ID,
		ScheduledFor: scheduledFor,
		OpenedAt:     snap.UpdatedAt,
	}, nil
}
