// Package http exposes the book club operations as a JSON API.
package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/config"
	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/infrastructure/export"
	"github.com/mahdygh/bookclub/internal/infrastructure/metrics"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// BodyLimit - maximum request body size in bytes.
	BodyLimit int

	// EnableMetrics - expose Prometheus metrics at /metrics.
	EnableMetrics bool

	// Version is reported by /health.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8080,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		BodyLimit:     1 << 20, // 1 MB
		EnableMetrics: true,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	Catalog            *command.CatalogHandler
	Members            *command.MemberHandler
	CreateAssignment   *command.CreateAssignmentHandler
	UpdateAssignment   *command.UpdateAssignmentHandler
	DeleteAssignment   *command.DeleteAssignmentHandler
	CompleteAssignment *command.CompleteAssignmentHandler
	NormalizeReturned  *command.NormalizeReturnedHandler
	ChangeBookScore    *command.ChangeBookScoreHandler
	AdvanceStage       *command.AdvanceStageHandler
	Notifications      *command.NotificationHandler
	Sessions           *command.SessionHandler

	// Query Handlers (CQRS Read Side)
	Reads          *query.Catalog
	Rankings       *query.GetRankingsHandler
	MemberRank     *query.GetMemberRankHandler
	MemberProgress *query.GetMemberProgressHandler
	AvailableBooks *query.GetAvailableBooksHandler
	Usage          *query.GetUsageHandler
	Inbox          *query.ListNotificationsHandler

	Export *export.RankingsWorkbook

	// Features gates optional endpoints. Nil disables them.
	Features *config.FeatureFlags

	// Location of the club calendar for date parameters.
	Location *time.Location

	// Now defaults to time.Now.
	Now func() time.Time

	Health *HealthChecker
	Logger *zap.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the fiber application with its routes.
type Server struct {
	config   Config
	deps     Dependencies
	app      *fiber.App
	validate *validator.Validate
	logger   *zap.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Health == nil {
		deps.Health = NewHealthChecker(cfg.Version)
	}

	s := &Server{
		config:   cfg,
		deps:     deps,
		validate: newValidator(),
		logger:   deps.Logger.With(logger.Component("http")),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "bookclub",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// App returns the fiber application, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	s.app.Use(s.accessLog())
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: s.logPanic,
	}))
}

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Metrics
	// ─────────────────────────────────────────────────────────────────────────
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/ready", s.handleReady)
	if s.config.EnableMetrics {
		s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	api := s.app.Group("/api/v1")

	// ─────────────────────────────────────────────────────────────────────────
	// Periods & Stages
	// ─────────────────────────────────────────────────────────────────────────
	api.Post("/periods", s.handleCreatePeriod)
	api.Get("/periods", s.handleListPeriods)
	api.Post("/periods/:id/activate", s.handleActivatePeriod)
	api.Post("/periods/:id/stages", s.handleCreateStage)
	api.Get("/periods/:id/stages", s.handleListStages)

	// ─────────────────────────────────────────────────────────────────────────
	// Books
	// ─────────────────────────────────────────────────────────────────────────
	api.Post("/books", s.handleCreateBook)
	api.Get("/books", s.handleListBooks)
	api.Get("/books/:id", s.handleGetBook)
	api.Patch("/books/:id", s.handleUpdateBook)
	api.Put("/books/:id/scores", s.handleChangeBookScore)

	// ─────────────────────────────────────────────────────────────────────────
	// Members
	// ─────────────────────────────────────────────────────────────────────────
	api.Post("/members", s.handleCreateMember)
	api.Get("/members", s.handleListMembers)
	api.Get("/members/:id", s.handleGetMember)
	api.Patch("/members/:id", s.handleUpdateMember)
	api.Get("/members/:id/progress", s.handleMemberProgress)
	api.Get("/members/:id/rank", s.handleMemberRank)
	api.Get("/members/:id/available-books", s.handleAvailableBooks)
	api.Post("/members/:id/advance", s.handleAdvanceStage)
	api.Post("/members/:id/account", s.handleCreateAccount)
	api.Get("/members/:id/notifications", s.handleMemberNotifications)

	// ─────────────────────────────────────────────────────────────────────────
	// Assignments
	// ─────────────────────────────────────────────────────────────────────────
	api.Post("/assignments", s.handleCreateAssignment)
	api.Get("/assignments", s.handleListAssignments)
	api.Get("/assignments/:id", s.handleGetAssignment)
	api.Patch("/assignments/:id", s.handleUpdateAssignment)
	api.Delete("/assignments/:id", s.handleDeleteAssignment)
	api.Post("/assignments/:id/complete", s.handleCompleteAssignment)
	api.Post("/admin/normalize-returned", s.handleNormalizeReturned)

	// ─────────────────────────────────────────────────────────────────────────
	// Rankings
	// ─────────────────────────────────────────────────────────────────────────
	api.Get("/rankings", s.handleRankings)
	api.Get("/rankings/weekly", s.handleWeeklyRankings)
	api.Get("/rankings/stages/:id", s.handleStageRankings)
	api.Get("/rankings/export.xlsx", s.handleExportRankings)

	// ─────────────────────────────────────────────────────────────────────────
	// Notifications, Sessions & Usage
	// ─────────────────────────────────────────────────────────────────────────
	api.Post("/notifications", s.handleSendNotification)
	api.Post("/notifications/:id/read", s.handleMarkRead)
	api.Post("/sessions/login", s.handleLogin)
	api.Post("/sessions/logout", s.handleLogout)
	api.Get("/users/:id/usage", s.handleUsage)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", zap.String("address", s.config.Address()))
	if err := s.app.Listen(s.config.Address()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
