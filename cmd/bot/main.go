// Package main is the entry point for the Strike League Hub service.
//
// The service runs a recurring bowling league: nightly check-in sessions,
// score submission with a sealed reveal, and a pairwise rating engine that
// feeds division standings.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: session state machine, rating engine, players, seasons
// - Application: commands, queries, the per-group session registry
// - Infrastructure: Postgres, Redis, event bus, scheduler
// - Interface: HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/strike-hub/strike-league-hub/config"
	"github.com/strike-hub/strike-league-hub/internal/application/command"
	"github.com/strike-hub/strike-league-hub/internal/application/query"
	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
	"github.com/strike-hub/strike-league-hub/internal/infrastructure/messaging"
	"github.com/strike-hub/strike-league-hub/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/strike-hub/strike-league-hub/internal/infrastructure/persistence/redis"
	"github.com/strike-hub/strike-league-hub/internal/infrastructure/scheduler"
	"github.com/strike-hub/strike-league-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/strike-hub/strike-league-hub/internal/interface/http"
	"github.com/strike-hub/strike-league-hub/pkg/logger"
	"github.com/strike-hub/strike-league-hub/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.Setup(logger.Options{
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logger.ParseFormat(cfg.Observability.LogFormat),
	})
	log.Info("starting Strike League Hub",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
		"groups", cfg.League.Groups,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return nil, retry.Retryable(err)
		}
		return conn, nil
	},
		retry.WithMaxAttempts(10),
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithMaxDelay(10*time.Second),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Warn("database not ready, retrying", "attempt", attempt, "delay", delay, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS & SETTINGS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	settingsRepo := postgres.NewSettingsRepository(dbConn)
	if err := settingsRepo.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed league settings: %w", err)
	}
	settings, err := settingsRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load league settings: %w", err)
	}
	log.Info("league settings loaded",
		"k_factor", settings.KFactor,
		"divisions", settings.DivisionCount,
		"activation_threshold", settings.ActivationThreshold,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional standings cache)
	// ─────────────────────────────────────────────────────────────────────────
	var standingsCache query.StandingsCache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redisinfra.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisClient, err := redisinfra.NewClient(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, standings cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			standingsCache = redisinfra.NewStandingsCache(redisClient)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. METRICS & EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.Metrics = messaging.NewEventBusMetrics(promRegistry)
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{Logger: log})
	defer dispatcher.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES & SESSION REGISTRY
	// ─────────────────────────────────────────────────────────────────────────
	playerRepo := postgres.NewPlayerRepository(dbConn)
	seasonRepo := postgres.NewSeasonRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	changeRepo := postgres.NewRatingChangeRepository(dbConn)

	reg := registry.New()
	for _, group := range cfg.League.Groups {
		sess, err := sessionRepo.LoadActive(ctx, group)
		if err != nil {
			if errors.Is(err, shared.ErrNoActiveSession) {
				continue
			}
			return fmt.Errorf("failed to restore session for group %q: %w", group, err)
		}
		sess.SetActivationThreshold(settings.ActivationThreshold)
		reg.Restore(group, sess)
		log.Info("restored active session", "group", group, "session_id", sess.Snapshot().ID)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Commands & Queries)
	// ─────────────────────────────────────────────────────────────────────────
	openCheckInCmd := command.NewOpenCheckInHandler(reg, sessionRepo, seasonRepo, settingsRepo, eventBus)
	toggleCheckInCmd := command.NewToggleCheckInHandler(reg, playerRepo, sessionRepo, eventBus)
	submitScoreCmd := command.NewSubmitScoreHandler(reg, playerRepo, sessionRepo, eventBus)
	editScoreCmd := command.NewEditScoreHandler(reg, playerRepo, sessionRepo, eventBus)
	correctScoreCmd := command.NewCorrectScoreHandler(reg, playerRepo, sessionRepo, eventBus)
	revealSessionCmd := command.NewRevealSessionHandler(reg, sessionRepo, playerRepo, seasonRepo, settingsRepo, changeRepo, eventBus)
	cancelSessionCmd := command.NewCancelSessionHandler(reg, sessionRepo, eventBus)
	startSeasonCmd := command.NewStartSeasonHandler(seasonRepo, playerRepo, eventBus)
	// New players start in the lowest division and climb via promotion.
	registerPlayerCmd := command.NewRegisterPlayerHandler(playerRepo, eventBus, player.Division(settings.DivisionCount))

	standingsQuery := query.NewStandingsHandler(playerRepo, standingsCache, cfg.Redis.StandingsTTL)
	sessionStatusQuery := query.NewSessionStatusHandler(reg)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	// Auto-reveal: when the last attending player submits both games the
	// session is revealed on the group's ordered queue.
	err = eventBus.Subscribe(shared.EventRevealReady, command.NewAutoRevealSubscriber(
		revealSessionCmd,
		eventBus,
		func(group string, apply func(ctx context.Context) error) error {
			return dispatcher.Dispatch(messaging.Inbound{Group: group, Apply: apply})
		},
	))
	if err != nil {
		return fmt.Errorf("failed to subscribe auto-reveal handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
		Metrics:  scheduler.NewMetrics(promRegistry),
	})

	if cfg.Scheduler.Enabled {
		openSchedule, err := scheduler.NewDailyAtSchedule(
			cfg.League.CheckInOpenAt.Hour,
			cfg.League.CheckInOpenAt.Minute,
			cfg.App.Location,
		)
		if err != nil {
			return fmt.Errorf("invalid check-in schedule: %w", err)
		}

		if err := sched.Register(
			jobs.NewOpenCheckInJob(openCheckInCmd, cfg.League.Groups, log),
			openSchedule,
		); err != nil {
			return fmt.Errorf("failed to register open_checkin job: %w", err)
		}

		if err := sched.Register(
			jobs.NewSessionRemindersJob(reg, sessionRepo, settingsRepo, eventBus, log),
			scheduler.NewIntervalSchedule(cfg.Scheduler.ReminderSweepInterval),
		); err != nil {
			return fmt.Errorf("failed to register session_reminders job: %w", err)
		}

		if err := sched.Register(
			jobs.NewRebuildStandingsJob(standingsQuery, standingsCache, settingsRepo, log),
			scheduler.NewIntervalSchedule(cfg.Scheduler.StandingsRebuildInterval),
		); err != nil {
			return fmt.Errorf("failed to register rebuild_standings job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started", "check_in_opens_at", cfg.League.CheckInOpenAt.String())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var httpServer *httpserver.Server
	var httpErrCh <-chan error

	if cfg.HTTP.Enabled {
		httpConfig := httpserver.DefaultConfig()
		httpConfig.Host = cfg.HTTP.Host
		httpConfig.Port = cfg.HTTP.Port
		httpConfig.EnableCORS = cfg.HTTP.EnableCORS
		httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
		httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
		httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

		httpServer = httpserver.NewServer(httpConfig, httpserver.Dependencies{
			StandingsHandler:      standingsQuery,
			SessionStatusHandler:  sessionStatusQuery,
			RegisterPlayerHandler: registerPlayerCmd,
			StartSeasonHandler:    startSeasonCmd,
			OpenCheckInHandler:    openCheckInCmd,
			ToggleCheckInHandler:  toggleCheckInCmd,
			SubmitScoreHandler:    submitScoreCmd,
			EditScoreHandler:      editScoreCmd,
			CorrectScoreHandler:   correctScoreCmd,
			RevealSessionHandler:  revealSessionCmd,
			CancelSessionHandler:  cancelSessionCmd,
			Jobs:                  sched,
			Logger:                log,
			MetricsGatherer:       promRegistry,
			ReadinessChecks: map[string]httpserver.ReadinessCheck{
				"postgres": dbConn.Ping,
			},
		})
		httpErrCh = httpServer.StartAsync()
		log.Info("HTTP server listening", "address", httpServer.Address())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Strike League Hub is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-httpErrCh:
		if err != nil {
			log.Error("http server failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	if cfg.Scheduler.Enabled {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			log.Error("failed to stop scheduler", "error", err)
			shutdownErr = err
		}
	}

	if httpServer != nil {
		log.Info("stopping HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", "error", err)
			shutdownErr = err
		}
	}

	// Dispatcher, event bus and database close through defers.

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}
