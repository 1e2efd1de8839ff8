package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SessionRemindersJob sweeps every open session and emits a reminder event for
// sessions with attending players who still owe scores. Throttling lives on
// the session itself, so the sweep interval only sets reminder granularity.
type SessionRemindersJob struct {
	registry     *registry.Registry
	sessionRepo  session.Repository
	settingsRepo rating.SettingsRepository
	publisher    shared.EventPublisher
	logger       *slog.Logger
}

// NewSessionRemindersJob creates a new session reminders job.
func NewSessionRemindersJob(
	reg *registry.Registry,
	sessionRepo session.Repository,
	settingsRepo rating.SettingsRepository,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *SessionRemindersJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRemindersJob{
		registry:     reg,
		sessionRepo:  sessionRepo,
		settingsRepo: settingsRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// Name returns the job name.
func (j *SessionRemindersJob) Name() string {
	return "session_reminders"
}

// Description returns a human-readable description.
func (j *SessionRemindersJob) Description() string {
	return "Reminds attending players who have not submitted both games"
}

// dueReminder is collected under the session lock and acted on outside it.
type dueReminder struct {
	snap    session.Snapshot
	pending []string
}

// Run sweeps all groups with an in-memory session.
func (j *SessionRemindersJob) Run(ctx context.Context) error {
	settings, err := j.settingsRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("session_reminders: %w", err)
	}

	now := time.Now().UTC()
	var due []dueReminder

	for _, group := range j.registry.Groups() {
		err := j.registry.WithSession(group, func(s *session.Session) error {
			if !s.ShouldRemind(now, settings.ReminderThrottle) {
				return nil
			}
			due = append(due, dueReminder{
				snap:    s.Snapshot(),
				pending: s.PendingPlayers(),
			})
			return nil
		})
		if err != nil {
			// The session was closed between Groups() and the sweep.
			continue
		}
	}

	// Persistence and publication happen outside the session locks.
	var failed int
	for _, d := range due {
		if err := j.sessionRepo.Save(ctx, d.snap); err != nil {
			failed++
			j.logger.Error("failed to persist reminder timestamp",
				"session_id", d.snap.ID,
				"error", err,
			)
			continue
		}

		_ = j.publisher.Publish(shared.NewReminderDueEvent(d.snap.ID, d.snap.Group, d.pending))
		j.logger.Info("reminder emitted",
			"session_id", d.snap.ID,
			"group", d.snap.Group,
			"pending", len(d.pending),
		)
	}

	if failed > 0 {
		return fmt.Errorf("session_reminders: %d reminders failed to persist", failed)
	}
	return nil
}
