package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/config"
	httpapi "github.com/mahdygh/bookclub/internal/interface/http"
)

// HTTPConfig converts the loaded settings into server settings.
func HTTPConfig(cfg *config.Config) httpapi.Config {
	c := httpapi.DefaultConfig()
	if cfg.HTTP.Host != "" {
		c.Host = cfg.HTTP.Host
	}
	if cfg.HTTP.Port > 0 {
		c.Port = cfg.HTTP.Port
	}
	if cfg.HTTP.ReadTimeout > 0 {
		c.ReadTimeout = cfg.HTTP.ReadTimeout
	}
	if cfg.HTTP.WriteTimeout > 0 {
		c.WriteTimeout = cfg.HTTP.WriteTimeout
	}
	if cfg.HTTP.IdleTimeout > 0 {
		c.IdleTimeout = cfg.HTTP.IdleTimeout
	}
	if cfg.HTTP.BodyLimit > 0 {
		c.BodyLimit = cfg.HTTP.BodyLimit
	}
	c.EnableMetrics = cfg.Observability.MetricsEnabled
	c.Version = cfg.App.Version
	return c
}

// HTTPDependencies hands the application handlers to the API server and
// registers a readiness check for every opened backing service.
func (a *Application) HTTPDependencies(cfg *config.Config, infra *Infrastructure, logger *zap.Logger) httpapi.Dependencies {
	health := httpapi.NewHealthChecker(cfg.App.Version)
	for name, p := range infra.Checks() {
		health.AddCheck(name, func(ctx context.Context) error { return p.Ping(ctx) })
	}

	return httpapi.Dependencies{
		Catalog:            a.Catalog,
		Members:            a.Members,
		CreateAssignment:   a.CreateAssignment,
		UpdateAssignment:   a.UpdateAssignment,
		DeleteAssignment:   a.DeleteAssignment,
		CompleteAssignment: a.CompleteAssignment,
		NormalizeReturned:  a.NormalizeReturned,
		ChangeBookScore:    a.ChangeBookScore,
		AdvanceStage:       a.AdvanceStage,
		Notifications:      a.Notifications,
		Sessions:           a.Sessions,

		Reads:          a.Reads,
		Rankings:       a.Rankings,
		MemberRank:     a.MemberRank,
		MemberProgress: a.MemberProgress,
		AvailableBooks: a.AvailableBooks,
		Usage:          a.Usage,
		Inbox:          a.Inbox,

		Export:   a.Export,
		Features: cfg.Features,
		Location: a.Env.Rules.Location,
		Now:      a.Env.Now,
		Health:   health,
		Logger:   logger,
	}
}
