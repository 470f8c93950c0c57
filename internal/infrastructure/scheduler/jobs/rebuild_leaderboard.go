// Package jobs contains the scheduled jobs. Each job drives an application
// command or query; none of them touches storage directly.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
	"github.com/mahdygh/bookclub/pkg/logger"
	"github.com/mahdygh/bookclub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RankingSource loads rankings from the database.
type RankingSource interface {
	Ranking(ctx context.Context, q query.GetRankingsQuery) (*leaderboard.Ranking, error)
}

// RebuildLeaderboardJob replaces the cached overall board and the board of
// the current week with fresh rankings from the database. Event-driven cache
// updates can be lost when Redis is briefly down; this job bounds the drift.
type RebuildLeaderboardJob struct {
	rankings RankingSource
	cache    leaderboard.Cache
	loc      *time.Location
	now      func() time.Time
	retrier  *retry.Retrier
	logger   *zap.Logger

	lastStats atomic.Pointer[RebuildStats]
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt     time.Time
	Duration      time.Duration
	OverallCount  int
	WeeklyCount   int
	WeekStart     time.Time
	BoardsWritten int
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(rankings RankingSource, cache leaderboard.Cache, loc *time.Location, now func() time.Time, log *zap.Logger) *RebuildLeaderboardJob {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}

	return &RebuildLeaderboardJob{
		rankings: rankings,
		cache:    cache,
		loc:      loc,
		now:      now,
		retrier: retry.CacheRetrier(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		logger: log.With(logger.Job("rebuild_leaderboard")),
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the cached overall and current-week leaderboards"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}

	now := j.now()
	stats := &RebuildStats{StartedAt: now}

	overall, err := j.rankings.Ranking(ctx, query.GetRankingsQuery{Kind: query.RankingOverall})
	if err != nil {
		return fmt.Errorf("load overall ranking: %w", err)
	}
	stats.OverallCount = overall.Len()

	weekStart, _ := weekly.Week(now, j.loc)
	week, err := j.rankings.Ranking(ctx, query.GetRankingsQuery{Kind: query.RankingWeekly, WeekOf: now})
	if err != nil {
		return fmt.Errorf("load weekly ranking: %w", err)
	}
	stats.WeekStart = weekStart
	stats.WeeklyCount = week.Len()

	boards := []struct {
		board   leaderboard.Board
		ranking *leaderboard.Ranking
	}{
		{leaderboard.BoardOverall, overall},
		{leaderboard.WeeklyBoard(weekStart), week},
	}

	var errs []error
	for _, b := range boards {
		err := j.retrier.Do(ctx, func(ctx context.Context) error {
			return j.cache.Replace(ctx, b.board, b.ranking.Scores())
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("replace %s: %w", b.board, err))
			continue
		}
		stats.BoardsWritten++
	}

	stats.Duration = time.Since(now)
	j.lastStats.Store(stats)

	j.logger.Info("leaderboards rebuilt",
		zap.Int("overall", stats.OverallCount),
		zap.Int("weekly", stats.WeeklyCount),
		zap.Int("boards_written", stats.BoardsWritten),
	)
	return errors.Join(errs...)
}

// LastStats returns the statistics of the last run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	return j.lastStats.Load()
}
