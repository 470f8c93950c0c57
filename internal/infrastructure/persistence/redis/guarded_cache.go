package redis

import (
	"context"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/infrastructure/metrics"
	"github.com/mahdygh/bookclub/pkg/circuitbreaker"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// GuardedLeaderboard runs every cache call through a circuit breaker. While
// Redis is down, score events and rank lookups fail immediately and fall
// back to the database; the rebuild job restores the boards afterwards.
type GuardedLeaderboard struct {
	inner   leaderboard.Cache
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedLeaderboard wraps inner with breaker. A nil breaker gets the
// CacheBreaker defaults with state changes logged and exported.
func NewGuardedLeaderboard(inner leaderboard.Cache, breaker *circuitbreaker.CircuitBreaker, log *zap.Logger) *GuardedLeaderboard {
	if log == nil {
		log = zap.NewNop()
	}
	if breaker == nil {
		log = log.With(logger.Component("leaderboard_cache"))
		breaker = circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			metrics.BreakerState(name, int(to))
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		})
	}
	return &GuardedLeaderboard{inner: inner, breaker: breaker}
}

// Breaker exposes the breaker for readiness reporting.
func (g *GuardedLeaderboard) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

func (g *GuardedLeaderboard) SetScore(ctx context.Context, board leaderboard.Board, memberID string, score int) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.SetScore(ctx, board, memberID, score)
	})
}

func (g *GuardedLeaderboard) Remove(ctx context.Context, board leaderboard.Board, memberID string) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Remove(ctx, board, memberID)
	})
}

func (g *GuardedLeaderboard) Replace(ctx context.Context, board leaderboard.Board, scores map[string]int) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Replace(ctx, board, scores)
	})
}

func (g *GuardedLeaderboard) Rank(ctx context.Context, board leaderboard.Board, memberID string) (int, bool, error) {
	var (
		rank int
		ok   bool
	)
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		rank, ok, err = g.inner.Rank(ctx, board, memberID)
		return err
	})
	return rank, ok, err
}

var _ leaderboard.Cache = (*GuardedLeaderboard)(nil)
