// Package jobs contains implementations of scheduled jobs for Strike League Hub.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/strike-hub/strike-league-hub/internal/application/command"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN CHECK-IN JOB
// ══════════════════════════════════════════════════════════════════════════════

// OpenCheckInJob opens the evening's session for every configured league group.
// A group that already has an open session is skipped, so the job is safe to
// re-run after a restart.
type OpenCheckInJob struct {
	openHandler *command.OpenCheckInHandler
	groups      []string
	logger      *slog.Logger
}

// NewOpenCheckInJob creates a new open check-in job.
func NewOpenCheckInJob(openHandler *command.OpenCheckInHandler, groups []string, logger *slog.Logger) *OpenCheckInJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenCheckInJob{
		openHandler: openHandler,
		groups:      groups,
		logger:      logger,
	}
}

// Name returns the job name.
func (j *OpenCheckInJob) Name() string {
	return "open_checkin"
}

// Description returns a human-readable description.
func (j *OpenCheckInJob) Description() string {
	return "Opens the nightly check-in for every league group"
}

// Run opens check-in for each group.
func (j *OpenCheckInJob) Run(ctx context.Context) error {
	var failed int
	for _, group := range j.groups {
		res, err := j.openHandler.Handle(ctx, command.OpenCheckInCommand{Group: group})
		switch {
		case err == nil:
			j.logger.Info("check-in opened",
				"group", group,
				"session_id", res.SessionID,
			)
		case errors.Is(err, shared.ErrSessionAlreadyOpen):
			j.logger.Info("check-in already open, skipping", "group", group)
		case errors.Is(err, shared.ErrNoActiveSeason):
			// No season means no sessions anywhere; stop early.
			j.logger.Warn("no active season, skipping all groups")
			return nil
		default:
			failed++
			j.logger.Error("failed to open check-in",
				"group", group,
				"error", err,
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("open_checkin: %d of %d groups failed", failed, len(j.groups))
	}
	return nil
}
