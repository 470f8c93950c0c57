// Package bootstrap wires configuration, storage, cache and the application
// layer together. Both the API server and the worker start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/config"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/internal/infrastructure/messaging"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/memory"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/postgres"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/redis"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// EventBus publishes and delivers domain events.
type EventBus interface {
	shared.EventPublisher
	shared.EventSubscriber
	Close() error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Infrastructure holds the opened backing services.
type Infrastructure struct {
	UoW uow.UnitOfWork

	// Database answers readiness checks for the selected store.
	Database Pinger

	// Cache is nil when Redis is disabled or unreachable.
	Cache *redis.Cache

	// Leaderboard is nil without a cache.
	Leaderboard leaderboard.Cache

	Bus EventBus

	closers []func() error
	logger  *zap.Logger
}

// Open connects to the configured store, runs migrations when enabled and
// connects to Redis. A Redis failure only disables caching.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Infrastructure, error) {
	if log == nil {
		log = zap.NewNop()
	}
	infra := &Infrastructure{logger: log.With(logger.Component("bootstrap"))}

	if err := infra.openStorage(ctx, cfg); err != nil {
		infra.Close()
		return nil, err
	}
	infra.openCache(cfg)

	if err := infra.openBus(); err != nil {
		infra.Close()
		return nil, err
	}
	return infra, nil
}

func (i *Infrastructure) openStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver == "memory" {
		store := memory.NewStore()
		i.UoW = store
		i.Database = store
		i.logger.Warn("using in-memory storage, data is lost on restart")
		return nil
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	if cfg.Database.MaxOpenConns > 0 {
		pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	i.closers = append(i.closers, func() error { conn.Close(); return nil })

	if cfg.Database.AutoMigrate {
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if status, err := migrator.Status(ctx); err == nil {
			applied := 0
			for _, m := range status {
				if m.IsApplied {
					applied++
				}
			}
			i.logger.Info("migrations completed", zap.Int("applied", applied), zap.Int("total", len(status)))
		}
	}

	tx := postgres.NewTxManager(conn, i.logger)
	i.UoW = tx
	i.Database = tx
	i.logger.Info("database connection established")
	return nil
}

func (i *Infrastructure) openCache(cfg *config.Config) {
	if cfg.Redis.Disabled {
		return
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		redisCfg.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.DialTimeout > 0 {
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
	}
	if cfg.Redis.ReadTimeout > 0 {
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	}
	if cfg.Redis.WriteTimeout > 0 {
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
	}

	cache, err := redis.NewCache(redisCfg)
	if err != nil {
		i.logger.Warn("failed to connect to Redis, caching disabled", zap.Error(err))
		return
	}
	i.Cache = cache
	i.closers = append(i.closers, cache.Close)

	if cfg.Features.IsEnabled(config.FeatureLeaderboardCache) {
		i.Leaderboard = redis.NewGuardedLeaderboard(redis.NewLeaderboardCache(cache), nil, i.logger)
	}
	i.logger.Info("Redis connection established", zap.String("addr", redisCfg.Addr()))
}

// openBus relays events through Redis when it is available so that every
// instance sees them. Without Redis events stay in process.
func (i *Infrastructure) openBus() error {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = i.logger
	local.AsyncMode = true

	if i.Cache != nil {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         i.Cache.Client(),
			LocalBusConfig: local,
			Logger:         i.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to start event relay: %w", err)
		}
		i.Bus = bus
	} else {
		i.Bus = messaging.NewInMemoryEventBus(local)
	}
	i.closers = append(i.closers, i.Bus.Close)
	return nil
}

// Checks returns the readiness checks of the opened services.
func (i *Infrastructure) Checks() map[string]Pinger {
	checks := map[string]Pinger{"database": i.Database}
	if i.Cache != nil {
		checks["redis"] = i.Cache
	}
	return checks
}

// Close releases everything in reverse opening order.
func (i *Infrastructure) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}
