package command_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/memory"
)

// fixture wires the command handlers to an in-memory store with a fixed
// clock. Wednesday 2024-03-13 10:00 UTC; its week starts Saturday 03-09.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	now   time.Time
	auto  bool
	books int
	bus   *recordingPublisher
}

type recordingPublisher struct {
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(t shared.EventType) int {
	n := 0
	for _, e := range p.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.NewStore(),
		now:   time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC),
		bus:   &recordingPublisher{},
	}
}

func (f *fixture) env() command.Env {
	return command.Env{
		UoW:         f.store,
		Publisher:   f.bus,
		Logger:      zap.NewNop(),
		Rules:       assignment.Rules{PenaltyPerLateDay: 2, Location: time.UTC},
		AutoAdvance: func() bool { return f.auto },
		Now:         func() time.Time { return f.now },
	}
}

func (f *fixture) catalog() *command.CatalogHandler { return command.NewCatalogHandler(f.env()) }
func (f *fixture) members() *command.MemberHandler  { return command.NewMemberHandler(f.env()) }

// stages creates an active period with two ordered stages.
func (f *fixture) stages() (*period.Stage, *period.Stage) {
	f.t.Helper()
	p, err := f.catalog().CreatePeriod(f.ctx, command.CreatePeriodCommand{
		Name:      "Spring",
		StartDate: f.now.AddDate(0, -1, 0),
		EndDate:   f.now.AddDate(0, 2, 0),
		Activate:  true,
	})
	require.NoError(f.t, err)

	s1, err := f.catalog().CreateStage(f.ctx, command.CreateStageCommand{PeriodID: p.ID, StageNumber: 1, Name: "First steps"})
	require.NoError(f.t, err)
	s2, err := f.catalog().CreateStage(f.ctx, command.CreateStageCommand{PeriodID: p.ID, StageNumber: 2, Name: "Deeper"})
	require.NoError(f.t, err)
	return s1, s2
}

func (f *fixture) book(stageID string, reading, quiz, readingDays, stock int) *book.Book {
	f.t.Helper()
	f.books++
	b, err := f.catalog().CreateBook(f.ctx, command.CreateBookCommand{
		StageID:      stageID,
		Title:        fmt.Sprintf("Book %d", f.books),
		ReadingScore: reading,
		QuizScore:    quiz,
		ReadingDays:  readingDays,
		PageCount:    120,
		StockCount:   stock,
	})
	require.NoError(f.t, err)
	return b
}

func (f *fixture) member(name string) *member.Member {
	f.t.Helper()
	m, err := f.members().CreateMember(f.ctx, command.CreateMemberCommand{FirstName: name, LastName: "Reader", GroupName: "A"})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) lend(memberID, bookID string, assigned time.Time) *assignment.Assignment {
	f.t.Helper()
	res, err := command.NewCreateAssignmentHandler(f.env()).Handle(f.ctx, command.CreateAssignmentCommand{
		MemberID:     memberID,
		BookID:       bookID,
		AssignedDate: assigned,
	})
	require.NoError(f.t, err)
	return res.Assignment
}

func (f *fixture) complete(id string, returned time.Time) *command.CompleteAssignmentResult {
	f.t.Helper()
	res, err := command.NewCompleteAssignmentHandler(f.env()).Handle(f.ctx, command.CompleteAssignmentCommand{
		AssignmentID: id,
		ReturnedDate: returned,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) total(memberID string) int {
	f.t.Helper()
	m, err := f.store.Repositories().Members.GetByID(f.ctx, memberID)
	require.NoError(f.t, err)
	return m.TotalScore
}

func (f *fixture) weekScore(memberID string, at time.Time) int {
	f.t.Helper()
	start, _ := weekly.Week(at, time.UTC)
	b, err := f.store.Repositories().Weekly.Get(f.ctx, memberID, start)
	require.NoError(f.t, err)
	if b == nil {
		return 0
	}
	return b.Score
}

func (f *fixture) assignment(id string) *assignment.Assignment {
	f.t.Helper()
	a, err := f.store.Repositories().Assignments.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

func ptr[T any](v T) *T { return &v }
