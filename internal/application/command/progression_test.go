package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/memory"
)

func TestAdvanceStage_AfterCompletingEveryBook(t *testing.T) {
	f := newFixture(t)
	s1, s2 := f.stages()
	b1 := f.book(s1.ID, 15, 5, 7, 2)
	b2 := f.book(s1.ID, 20, 5, 7, 2)
	m := f.member("Sara")
	require.Equal(t, s1.ID, m.CurrentStageID)

	h := command.NewAdvanceStageHandler(f.env())

	a1 := f.lend(m.ID, b1.ID, day(11, 10))
	a2 := f.lend(m.ID, b2.ID, day(11, 10))
	f.complete(a1.ID, day(12, 10))

	res, err := h.Handle(f.ctx, command.AdvanceStageCommand{MemberID: m.ID})
	require.NoError(t, err)
	assert.False(t, res.Advanced)

	f.complete(a2.ID, day(12, 12))
	assert.Equal(t, 45, f.total(m.ID))

	res, err = h.Handle(f.ctx, command.AdvanceStageCommand{MemberID: m.ID})
	require.NoError(t, err)
	require.True(t, res.Advanced)
	assert.Equal(t, s1.ID, res.Advancement.FromStageID)
	assert.Equal(t, s2.ID, res.Advancement.ToStageID)

	got, err := f.store.Repositories().Members.GetByID(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, s2.ID, got.CurrentStageID)
	assert.Equal(t, 45, got.TotalScore)
	assert.Equal(t, 1, f.bus.count(shared.EventMemberStageAdvanced))

	// The last stage has nowhere to go.
	res, err = h.Handle(f.ctx, command.AdvanceStageCommand{MemberID: m.ID})
	require.NoError(t, err)
	assert.False(t, res.Advanced)
}

func TestAutoAdvance_OnCompletion(t *testing.T) {
	f := newFixture(t)
	f.auto = true
	s1, s2 := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 2)
	m := f.member("Sara")

	a := f.lend(m.ID, b.ID, day(11, 10))
	res := f.complete(a.ID, day(12, 10))

	require.NotNil(t, res.Advancement)
	assert.Equal(t, s2.ID, res.Advancement.ToStageID)
}

func TestAutoAdvance_DisabledKeepsStage(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 2)
	m := f.member("Sara")

	a := f.lend(m.ID, b.ID, day(11, 10))
	res := f.complete(a.ID, day(12, 10))

	assert.Nil(t, res.Advancement)
	got, err := f.store.Repositories().Members.GetByID(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, got.CurrentStageID)
}

// ══════════════════════════════════════════════════════════════════════════════
// Normalization
// ══════════════════════════════════════════════════════════════════════════════

func TestNormalizeReturned_HealsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 5)
	m := f.member("Sara")

	returned := day(11, 11)
	// Returned but never scored; one day late against a 03-10 10:00 due date.
	f.store.SeedAssignmentRow(memory.AssignmentRow{
		ID: "a-returned", MemberID: m.ID, BookID: b.ID,
		AssignedDate: day(3, 10), DueDate: day(10, 10),
		ReturnedDate: &returned,
	})
	// Imported with a frozen quiz score that must survive.
	f.store.SeedAssignmentRow(memory.AssignmentRow{
		ID: "a-seeded", MemberID: m.ID, BookID: b.ID,
		AssignedDate: day(3, 10), DueDate: day(10, 10),
		ReturnedDate: &returned,
		Scores:       assignment.Scores{QuizEarned: 7},
	})
	// Flagged completed without a date.
	f.store.SeedAssignmentRow(memory.AssignmentRow{
		ID: "a-flagged", MemberID: m.ID, BookID: b.ID,
		AssignedDate: day(3, 10), DueDate: day(10, 10),
		IsCompleted: true,
		Scores:      assignment.Scores{ReadingEarned: 5},
	})

	h := command.NewNormalizeReturnedHandler(f.env())

	res, err := h.Handle(f.ctx, command.NormalizeReturnedCommand{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Settled)
	assert.Equal(t, 1, res.Demoted)
	assert.Empty(t, res.Failures)

	assert.Equal(t, 28+25, f.total(m.ID))
	assert.Equal(t, 28+25, f.weekScore(m.ID, returned))

	row, ok := f.store.AssignmentRow("a-seeded")
	require.True(t, ok)
	assert.True(t, row.IsCompleted)
	assert.Equal(t, 7, row.Scores.QuizEarned)
	assert.Equal(t, 1, row.LateDays)

	row, ok = f.store.AssignmentRow("a-flagged")
	require.True(t, ok)
	assert.False(t, row.IsCompleted)
	assert.Nil(t, row.ReturnedDate)
	assert.True(t, row.Scores.IsZero())

	again, err := h.Handle(f.ctx, command.NormalizeReturnedCommand{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Scanned)
	assert.Equal(t, 53, f.total(m.ID))
	assert.Equal(t, 53, f.weekScore(m.ID, returned))
}

func TestNormalizeReturned_CollectsFailures(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 5)
	m := f.member("Sara")

	returned := day(9, 10)
	f.store.SeedAssignmentRow(memory.AssignmentRow{
		ID: "a-ok", MemberID: m.ID, BookID: b.ID,
		AssignedDate: day(3, 10), ReturnedDate: &returned,
	})
	f.store.SeedAssignmentRow(memory.AssignmentRow{
		ID: "a-orphan", MemberID: m.ID, BookID: "gone",
		AssignedDate: day(3, 10), ReturnedDate: &returned,
	})

	res, err := command.NewNormalizeReturnedHandler(f.env()).Handle(f.ctx, command.NormalizeReturnedCommand{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Settled)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "a-orphan", res.Failures[0].AssignmentID)
	assert.ErrorIs(t, res.Failures[0].Err, shared.ErrBookNotFound)
	assert.Equal(t, 30, f.total(m.ID))
	assert.Equal(t, 1, f.bus.count(shared.EventReturnsNormalized))
}
