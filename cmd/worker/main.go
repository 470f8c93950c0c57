// Package main is the entry point of the book club background worker.
//
// The worker runs the periodic jobs:
//   - normalizing returned assignments written by bulk imports
//   - sending due-date reminders
//   - rebuilding the cached leaderboards
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/config"
	"github.com/mahdygh/bookclub/internal/bootstrap"
	"github.com/mahdygh/bookclub/internal/infrastructure/scheduler"
	"github.com/mahdygh/bookclub/internal/infrastructure/scheduler/jobs"
	"github.com/mahdygh/bookclub/pkg/logger"
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
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log, err := logger.New(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

	log.Info("starting bookclub worker",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE, CACHE & EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing infrastructure...")
		if err := infra.Close(); err != nil {
			log.Warn("failed to close infrastructure", zap.Error(err))
		}
	}()

	app, err := bootstrap.NewApplication(cfg, infra, nil, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:     log,
		Location:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})

	registrations := []struct {
		job  scheduler.Job
		spec string
	}{
		{jobs.NewNormalizeReturnedJob(app.NormalizeReturned, log), cfg.Scheduler.NormalizeReturnedSpec},
		{jobs.NewDueRemindersJob(app.Notifications, func() bool {
			return cfg.Features.IsEnabled(config.FeatureDueReminders)
		}, log), cfg.Scheduler.DueRemindersSpec},
		{jobs.NewRebuildLeaderboardJob(app.Rankings, infra.Leaderboard, cfg.App.Location, nil, log), cfg.Scheduler.RebuildLeaderboardSpec},
	}
	for _, r := range registrations {
		if err := sched.Register(r.job, r.spec); err != nil {
			return fmt.Errorf("failed to register %s: %w", r.job.Name(), err)
		}
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	for _, info := range sched.ListJobs() {
		log.Info("job scheduled", logger.Job(info.Name), zap.String("spec", info.Spec))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", zap.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn("scheduler did not stop in time", zap.Error(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}
