package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/strike-hub/strike-league-hub/internal/application/query"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD STANDINGS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildStandingsJob drops the cached standings and warms them back up for
// every division. Standings only move at reveal time, so a periodic rebuild
// keeps the cache honest even if an invalidation was lost.
type RebuildStandingsJob struct {
	standings    *query.StandingsHandler
	cache        query.StandingsCache
	settingsRepo rating.SettingsRepository
	logger       *slog.Logger
}

// NewRebuildStandingsJob creates a new rebuild standings job.
// cache may be nil, in which case only the warm-up queries run.
func NewRebuildStandingsJob(
	standings *query.StandingsHandler,
	cache query.StandingsCache,
	settingsRepo rating.SettingsRepository,
	logger *slog.Logger,
) *RebuildStandingsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildStandingsJob{
		standings:    standings,
		cache:        cache,
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// Name returns the job name.
func (j *RebuildStandingsJob) Name() string {
	return "rebuild_standings"
}

// Description returns a human-readable description.
func (j *RebuildStandingsJob) Description() string {
	return "Invalidates and re-warms the cached division standings"
}

// Run rebuilds the standings cache division by division.
func (j *RebuildStandingsJob) Run(ctx context.Context) error {
	settings, err := j.settingsRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("rebuild_standings: %w", err)
	}

	if j.cache != nil {
		if err := j.cache.Invalidate(ctx); err != nil {
			j.logger.Warn("failed to invalidate standings cache", "error", err)
		}
	}

	var failed int
	for d := 1; d <= settings.DivisionCount; d++ {
		// A cache miss inside the handler repopulates the division entry.
		_, err := j.standings.Handle(ctx, query.StandingsQuery{
			Division: player.Division(d),
			Limit:    100,
		})
		if err != nil {
			failed++
			j.logger.Error("failed to rebuild division standings",
				"division", d,
				"error", err,
			)
		}
	}

	j.logger.Info("standings cache rebuilt",
		"divisions", settings.DivisionCount,
		"failed", failed,
	)

	if failed > 0 {
		return fmt.Errorf("rebuild_standings: %d divisions failed", failed)
	}
	return nil
}
