package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/memory"
	"github.com/mahdygh/bookclub/internal/infrastructure/scheduler/jobs"
)

type stubRankings struct {
	overall []*leaderboard.Entry
	weekly  []*leaderboard.Entry
	queries []query.GetRankingsQuery
}

func (s *stubRankings) Ranking(_ context.Context, q query.GetRankingsQuery) (*leaderboard.Ranking, error) {
	s.queries = append(s.queries, q)
	if q.Kind == query.RankingWeekly {
		return leaderboard.NewRanking(s.weekly), nil
	}
	return leaderboard.NewRanking(s.overall), nil
}

type recordingCache struct {
	boards   map[leaderboard.Board]map[string]int
	failures int
}

func (c *recordingCache) SetScore(context.Context, leaderboard.Board, string, int) error { return nil }
func (c *recordingCache) Remove(context.Context, leaderboard.Board, string) error        { return nil }

func (c *recordingCache) Rank(context.Context, leaderboard.Board, string) (int, bool, error) {
	return 0, false, nil
}

func (c *recordingCache) Replace(_ context.Context, b leaderboard.Board, scores map[string]int) error {
	if c.failures > 0 {
		c.failures--
		return errors.New("i/o timeout")
	}
	c.boards[b] = scores
	return nil
}

func TestRebuildLeaderboardJob(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	rankings := &stubRankings{
		overall: []*leaderboard.Entry{{MemberID: "a", Score: 45}, {MemberID: "b", Score: 20}},
		weekly:  []*leaderboard.Entry{{MemberID: "a", Score: 20}},
	}
	// One transient failure is retried.
	cache := &recordingCache{boards: map[leaderboard.Board]map[string]int{}, failures: 1}

	job := jobs.NewRebuildLeaderboardJob(rankings, cache, time.UTC, func() time.Time { return now }, nil)
	require.NoError(t, job.Run(context.Background()))

	week := leaderboard.WeeklyBoard(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, map[string]int{"a": 45, "b": 20}, cache.boards[leaderboard.BoardOverall])
	assert.Equal(t, map[string]int{"a": 20}, cache.boards[week])

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.OverallCount)
	assert.Equal(t, 1, stats.WeeklyCount)
	assert.Equal(t, 2, stats.BoardsWritten)
	assert.Equal(t, "rebuild_leaderboard", job.Name())
}

func TestRebuildLeaderboardJob_NoCache(t *testing.T) {
	rankings := &stubRankings{}
	job := jobs.NewRebuildLeaderboardJob(rankings, nil, nil, nil, nil)
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, rankings.queries)
}

type stubNormalizer struct {
	result *command.NormalizeReturnedResult
	err    error
}

func (s stubNormalizer) Handle(context.Context, command.NormalizeReturnedCommand) (*command.NormalizeReturnedResult, error) {
	return s.result, s.err
}

func TestNormalizeReturnedJob(t *testing.T) {
	ok := jobs.NewNormalizeReturnedJob(stubNormalizer{result: &command.NormalizeReturnedResult{Scanned: 2, Settled: 1, Demoted: 1}}, nil)
	assert.NoError(t, ok.Run(context.Background()))

	partial := jobs.NewNormalizeReturnedJob(stubNormalizer{result: &command.NormalizeReturnedResult{
		Scanned:  3,
		Settled:  2,
		Failures: []command.NormalizeFailure{{AssignmentID: "a-9", Err: errors.New("book missing")}},
	}}, nil)
	err := partial.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 rows failed")

	broken := jobs.NewNormalizeReturnedJob(stubNormalizer{err: context.DeadlineExceeded}, nil)
	assert.ErrorIs(t, broken.Run(context.Background()), context.DeadlineExceeded)
}

func TestNormalizeReturnedJob_EmptyStore(t *testing.T) {
	h := command.NewNormalizeReturnedHandler(command.Env{UoW: memory.NewStore()})
	assert.NoError(t, jobs.NewNormalizeReturnedJob(h, nil).Run(context.Background()))
}

type stubSender struct {
	calls int
}

func (s *stubSender) SendDueReminders(context.Context) (*command.SendDueRemindersResult, error) {
	s.calls++
	return &command.SendDueRemindersResult{Candidates: 2, Sent: 1}, nil
}

func TestDueRemindersJob(t *testing.T) {
	sender := &stubSender{}
	enabled := false
	job := jobs.NewDueRemindersJob(sender, func() bool { return enabled }, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, sender.calls)

	enabled = true
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sender.calls)
}
