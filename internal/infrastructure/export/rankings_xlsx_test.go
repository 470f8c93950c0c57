package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
)

type stubRankings struct {
	err     error
	queries []query.GetRankingsQuery
}

func (s *stubRankings) Ranking(_ context.Context, q query.GetRankingsQuery) (*leaderboard.Ranking, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	if q.Kind == query.RankingWeekly {
		return leaderboard.NewRanking([]*leaderboard.Entry{
			{MemberID: "m2", FullName: "Ali", GroupName: "A", Score: 20, TotalScore: 20, CompletedBooks: 1},
		}), nil
	}
	return leaderboard.NewRanking([]*leaderboard.Entry{
		{MemberID: "m2", FullName: "Ali", GroupName: "A", Score: 20, TotalScore: 20, CompletedBooks: 1},
		{MemberID: "m1", FullName: "Sara", GroupName: "A", Score: 45, TotalScore: 45, CompletedBooks: 2},
	}), nil
}

func TestRankingsWorkbook_Build(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	src := &stubRankings{}
	w := NewRankingsWorkbook(src, time.UTC, func() time.Time { return now }, nil)

	buf, filename, err := w.Build(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "rankings_2024-03-13.xlsx", filename)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{overallSheet, weeklySheet}, f.GetSheetList())

	rows, err := f.GetRows(overallSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Overall ranking", rows[0][0])
	assert.Equal(t, []string{"Rank", "Member", "Group", "Total score", "Total score", "Completed books"}, rows[1])
	assert.Equal(t, []string{"1", "Sara", "A", "45", "45", "2"}, rows[2])
	assert.Equal(t, []string{"2", "Ali", "A", "20", "20", "1"}, rows[3])

	rows, err = f.GetRows(weeklySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Week 2024-03-09 to 2024-03-15", rows[0][0])
	assert.Equal(t, "Weekly score", rows[1][3])
}

func TestRankingsWorkbook_Group(t *testing.T) {
	src := &stubRankings{}
	w := NewRankingsWorkbook(src, nil, nil, nil)

	_, _, err := w.Build(context.Background(), "A")
	require.NoError(t, err)
	require.NotEmpty(t, src.queries)
	assert.Equal(t, query.RankingGroup, src.queries[0].Kind)
	assert.Equal(t, "A", src.queries[0].Group)
}

func TestRankingsWorkbook_SourceError(t *testing.T) {
	boom := errors.New("db down")
	w := NewRankingsWorkbook(&stubRankings{err: boom}, nil, nil, nil)

	_, _, err := w.Build(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}
