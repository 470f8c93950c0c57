// Package main is the entry point of the book club API server.
//
// The server exposes periods, stages, books, members and assignments over a
// JSON API and keeps member totals, weekly boards and rankings consistent as
// loans are created, returned, edited and deleted.
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
	httpapi "github.com/mahdygh/bookclub/internal/interface/http"
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

	log.Info("starting bookclub API",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("version", cfg.App.Version),
		zap.String("timezone", cfg.App.Timezone),
		zap.String("driver", cfg.Database.Driver),
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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	app, err := bootstrap.NewApplication(cfg, infra, nil, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpapi.NewServer(bootstrap.HTTPConfig(cfg), app.HTTPDependencies(cfg, infra, log))
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", zap.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}
