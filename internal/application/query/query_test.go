package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/memory"
)

// Wednesday; the week runs Saturday 03-09 to Friday 03-15.
var now = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type club struct {
	ctx     context.Context
	store   *memory.Store
	env     command.Env
	s1, s2  *period.Stage
	b1, b2  *book.Book
	sara    *member.Member
	ali     *member.Member
	reza    *member.Member
	catalog *command.CatalogHandler
}

// newClub seeds two stages, two books in the first one and three members.
// Sara completes both books (45 points), Ali completes the first (20).
func newClub(t *testing.T) *club {
	t.Helper()
	c := &club{ctx: context.Background(), store: memory.NewStore()}
	c.env = command.Env{
		UoW:    c.store,
		Logger: zap.NewNop(),
		Rules:  assignment.Rules{PenaltyPerLateDay: 2, Location: time.UTC},
		Now:    clock,
	}
	c.catalog = command.NewCatalogHandler(c.env)

	p, err := c.catalog.CreatePeriod(c.ctx, command.CreatePeriodCommand{
		Name: "Spring", StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 2, 0), Activate: true,
	})
	require.NoError(t, err)
	c.s1, err = c.catalog.CreateStage(c.ctx, command.CreateStageCommand{PeriodID: p.ID, StageNumber: 1, Name: "One"})
	require.NoError(t, err)
	c.s2, err = c.catalog.CreateStage(c.ctx, command.CreateStageCommand{PeriodID: p.ID, StageNumber: 2, Name: "Two"})
	require.NoError(t, err)

	c.b1, err = c.catalog.CreateBook(c.ctx, command.CreateBookCommand{StageID: c.s1.ID, Title: "Alpha", ReadingScore: 15, QuizScore: 5, ReadingDays: 7, StockCount: 2})
	require.NoError(t, err)
	c.b2, err = c.catalog.CreateBook(c.ctx, command.CreateBookCommand{StageID: c.s1.ID, Title: "Beta", ReadingScore: 20, QuizScore: 5, ReadingDays: 7, StockCount: 1})
	require.NoError(t, err)

	members := command.NewMemberHandler(c.env)
	c.sara, err = members.CreateMember(c.ctx, command.CreateMemberCommand{FirstName: "Sara", LastName: "A", GroupName: "blue"})
	require.NoError(t, err)
	c.ali, err = members.CreateMember(c.ctx, command.CreateMemberCommand{FirstName: "Ali", LastName: "B", GroupName: "red"})
	require.NoError(t, err)
	c.reza, err = members.CreateMember(c.ctx, command.CreateMemberCommand{FirstName: "Reza", LastName: "C", GroupName: "blue"})
	require.NoError(t, err)

	c.read(t, c.sara.ID, c.b1.ID)
	c.read(t, c.sara.ID, c.b2.ID)
	c.read(t, c.ali.ID, c.b1.ID)
	return c
}

func (c *club) read(t *testing.T, memberID, bookID string) {
	t.Helper()
	returned := now.Add(-time.Hour)
	_, err := command.NewCreateAssignmentHandler(c.env).Handle(c.ctx, command.CreateAssignmentCommand{
		MemberID:     memberID,
		BookID:       bookID,
		AssignedDate: now.AddDate(0, 0, -2),
		ReturnedDate: &returned,
	})
	require.NoError(t, err)
}

func TestGetMemberProgress(t *testing.T) {
	c := newClub(t)
	h := query.NewGetMemberProgressHandler(c.store.Repositories())

	sara, err := h.Handle(c.ctx, query.GetMemberProgressQuery{MemberID: c.sara.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, sara.TotalBooksInStage)
	assert.Equal(t, 2, sara.CompletedBooks)
	assert.Equal(t, 100.0, sara.ProgressPercentage)
	assert.True(t, sara.CanAdvance)
	assert.Equal(t, 45, sara.TotalScore)
	assert.Empty(t, sara.Remaining)

	ali, err := h.Handle(c.ctx, query.GetMemberProgressQuery{MemberID: c.ali.ID})
	require.NoError(t, err)
	assert.Equal(t, 50.0, ali.ProgressPercentage)
	assert.False(t, ali.CanAdvance)
	require.Len(t, ali.Remaining, 1)
	assert.Equal(t, "Beta", ali.Remaining[0].Title)

	_, err = h.Handle(c.ctx, query.GetMemberProgressQuery{MemberID: "missing"})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetRankings(t *testing.T) {
	c := newClub(t)
	h := query.NewGetRankingsHandler(c.store.Repositories(), time.UTC, clock)

	overall, err := h.Handle(c.ctx, query.GetRankingsQuery{})
	require.NoError(t, err)
	require.Len(t, overall.Entries, 3)
	assert.Equal(t, c.sara.ID, overall.Entries[0].MemberID)
	assert.Equal(t, 1, overall.Entries[0].Rank)
	assert.Equal(t, 2, overall.Entries[0].CompletedBooks)
	assert.Equal(t, c.ali.ID, overall.Entries[1].MemberID)
	assert.Equal(t, 3, overall.Entries[2].Rank)

	group, err := h.Handle(c.ctx, query.GetRankingsQuery{Kind: query.RankingGroup, Group: "blue"})
	require.NoError(t, err)
	require.Len(t, group.Entries, 2)
	assert.Equal(t, c.reza.ID, group.Entries[1].MemberID)
	assert.Equal(t, 2, group.Entries[1].Rank)

	stage, err := h.Handle(c.ctx, query.GetRankingsQuery{Kind: query.RankingStage, StageID: c.s1.ID})
	require.NoError(t, err)
	require.Len(t, stage.Entries, 3)
	assert.Equal(t, 45, stage.Entries[0].Score)
	assert.Equal(t, 20, stage.Entries[1].Score)

	week, err := h.Handle(c.ctx, query.GetRankingsQuery{Kind: query.RankingWeekly})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", week.WeekStart)
	assert.Equal(t, "2024-03-15", week.WeekEnd)
	require.Len(t, week.Entries, 2)
	assert.Equal(t, 45, week.Entries[0].Score)

	top, err := h.Handle(c.ctx, query.GetRankingsQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, top.Entries, 1)
	assert.Equal(t, 3, top.Total)

	_, err = h.Handle(c.ctx, query.GetRankingsQuery{Kind: query.RankingGroup})
	assert.True(t, shared.IsValidation(err))
}

func TestGetRankings_TiesShareRank(t *testing.T) {
	c := newClub(t)
	c.read(t, c.reza.ID, c.b1.ID)

	h := query.NewGetRankingsHandler(c.store.Repositories(), time.UTC, clock)
	overall, err := h.Handle(c.ctx, query.GetRankingsQuery{})
	require.NoError(t, err)

	require.Len(t, overall.Entries, 3)
	assert.Equal(t, 2, overall.Entries[1].Rank)
	assert.Equal(t, 2, overall.Entries[2].Rank)
	assert.Less(t, overall.Entries[1].MemberID, overall.Entries[2].MemberID)
}

type stubCache struct {
	rank int
	ok   bool
	err  error
}

func (s stubCache) SetScore(context.Context, leaderboard.Board, string, int) error   { return nil }
func (s stubCache) Remove(context.Context, leaderboard.Board, string) error          { return nil }
func (s stubCache) Replace(context.Context, leaderboard.Board, map[string]int) error { return nil }
func (s stubCache) Rank(context.Context, leaderboard.Board, string) (int, bool, error) {
	return s.rank, s.ok, s.err
}

func TestGetMemberRank(t *testing.T) {
	c := newClub(t)
	repos := c.store.Repositories()

	tests := []struct {
		name      string
		cache     leaderboard.Cache
		wantRank  int
		fromCache bool
	}{
		{"no cache", nil, 2, false},
		{"cache hit", stubCache{rank: 7, ok: true}, 7, true},
		{"cache miss", stubCache{}, 2, false},
		{"cache error", stubCache{err: errors.New("redis down")}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := query.NewGetMemberRankHandler(repos, tt.cache, time.UTC, clock, zap.NewNop())
			got, err := h.Handle(c.ctx, query.GetMemberRankQuery{MemberID: c.ali.ID})
			require.NoError(t, err)

			assert.Equal(t, tt.wantRank, got.OverallRank)
			assert.Equal(t, tt.fromCache, got.FromCache)
			assert.Equal(t, 3, got.OverallTotal)
			assert.Equal(t, 1, got.GroupRank)
			assert.Equal(t, 20, got.WeeklyScore)
			assert.Equal(t, 2, got.WeeklyRank)
		})
	}
}

func TestGetAvailableBooks(t *testing.T) {
	c := newClub(t)
	h := query.NewGetAvailableBooksHandler(c.store.Repositories())

	ali, err := h.Handle(c.ctx, query.GetAvailableBooksQuery{MemberID: c.ali.ID})
	require.NoError(t, err)
	require.Len(t, ali, 1)
	assert.Equal(t, c.b2.ID, ali[0].ID)
	require.NotNil(t, ali[0].Available)
	assert.Equal(t, 1, *ali[0].Available)

	// Reza borrows the only copy of Beta.
	_, err = command.NewCreateAssignmentHandler(c.env).Handle(c.ctx, command.CreateAssignmentCommand{MemberID: c.reza.ID, BookID: c.b2.ID})
	require.NoError(t, err)

	ali, err = h.Handle(c.ctx, query.GetAvailableBooksQuery{MemberID: c.ali.ID})
	require.NoError(t, err)
	assert.Empty(t, ali)

	sara, err := h.Handle(c.ctx, query.GetAvailableBooksQuery{MemberID: c.sara.ID})
	require.NoError(t, err)
	assert.Empty(t, sara)
}

func TestListNotifications(t *testing.T) {
	c := newClub(t)
	notify := command.NewNotificationHandler(c.env, 2)

	_, err := notify.Send(c.ctx, command.SendNotificationCommand{Kind: notification.KindGeneral, Title: "Welcome"})
	require.NoError(t, err)
	private, err := notify.Send(c.ctx, command.SendNotificationCommand{Kind: notification.KindPrivate, RecipientID: c.ali.ID, Title: "Nice work"})
	require.NoError(t, err)
	_, err = notify.Send(c.ctx, command.SendNotificationCommand{Kind: notification.KindPrivate, RecipientID: c.sara.ID, Title: "Not for Ali"})
	require.NoError(t, err)

	h := query.NewListNotificationsHandler(c.store.Repositories())

	inbox, err := h.Handle(c.ctx, query.ListNotificationsQuery{MemberID: c.ali.ID})
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 2)
	assert.Equal(t, 1, inbox.UnreadCount)

	_, err = notify.MarkRead(c.ctx, private.ID, c.ali.ID)
	require.NoError(t, err)

	inbox, err = h.Handle(c.ctx, query.ListNotificationsQuery{MemberID: c.ali.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
	assert.Equal(t, 0, inbox.UnreadCount)
}

func TestGetUsage(t *testing.T) {
	c := newClub(t)
	u, err := command.NewMemberHandler(c.env).CreateMemberAccount(c.ctx, command.CreateMemberAccountCommand{
		MemberID: c.sara.ID, Username: "sara", Password: "long enough",
	})
	require.NoError(t, err)

	sessions := command.NewSessionHandler(c.env)
	_, err = sessions.RecordLogin(c.ctx, u.ID, now.Add(-3*time.Hour))
	require.NoError(t, err)
	_, err = sessions.RecordLogout(c.ctx, u.ID, now.Add(-time.Hour-50*time.Minute))
	require.NoError(t, err)
	_, err = sessions.RecordLogin(c.ctx, u.ID, now.Add(-30*time.Second))
	require.NoError(t, err)

	got, err := query.NewGetUsageHandler(c.store.Repositories(), clock).Handle(c.ctx, query.GetUsageQuery{UserID: u.ID})
	require.NoError(t, err)

	assert.Equal(t, 70*60+30, got.TotalSeconds)
	assert.Equal(t, "1h 10m", got.Duration)
	assert.True(t, got.Online)
	assert.Equal(t, 2, got.Sessions)
	require.Len(t, got.Daily, 1)
	assert.Equal(t, "2024-03-13", got.Daily[0].Date)
	assert.Equal(t, "1h 10m", got.Daily[0].Duration)
}

func TestCatalog_GetAssignmentPenalty(t *testing.T) {
	c := newClub(t)
	res, err := command.NewCreateAssignmentHandler(c.env).Handle(c.ctx, command.CreateAssignmentCommand{
		MemberID:     c.reza.ID,
		BookID:       c.b2.ID,
		AssignedDate: now.AddDate(0, 0, -10),
	})
	require.NoError(t, err)

	catalog := query.NewCatalog(c.store.Repositories(), c.env.Rules, clock)
	got, err := catalog.GetAssignment(c.ctx, res.Assignment.ID)
	require.NoError(t, err)

	// Due three days ago: six points would be lost if returned now.
	require.NotNil(t, got.Penalty)
	assert.Equal(t, 6, *got.Penalty)
	assert.Equal(t, "pending", got.Status)

	list, err := catalog.ListAssignments(c.ctx, assignment.Filter{Status: assignment.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = catalog.ListAssignments(c.ctx, assignment.Filter{Status: "lost"})
	assert.True(t, shared.IsValidation(err))

	b, err := catalog.GetBook(c.ctx, c.b2.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *b.Available)
}
