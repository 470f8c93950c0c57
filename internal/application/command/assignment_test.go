package command_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/infrastructure/persistence/memory"
)

func day(d, h int) time.Time {
	return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)
}

// ══════════════════════════════════════════════════════════════════════════════
// Completion
// ══════════════════════════════════════════════════════════════════════════════

func TestCompleteAssignment_AppliesLatePenalty(t *testing.T) {
	tests := []struct {
		name     string
		returned time.Time
		late     int
		earned   int
	}{
		{"before due", day(9, 10), 0, 30},
		{"exactly at due", day(10, 10), 0, 30},
		{"one second late", day(10, 10).Add(time.Second), 0, 30},
		{"one day and a second late", day(11, 10).Add(time.Second), 1, 28},
		{"three days late", day(13, 9), 2, 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s1, _ := f.stages()
			b := f.book(s1.ID, 20, 10, 7, 3)
			m := f.member("Sara")
			a := f.lend(m.ID, b.ID, day(3, 10))

			res := f.complete(a.ID, tt.returned)

			assert.Equal(t, tt.late, res.Completion.LateDays)
			assert.Equal(t, tt.earned, res.Completion.Scores.Total())
			assert.Equal(t, tt.earned, f.total(m.ID))
			assert.Equal(t, tt.earned, f.weekScore(m.ID, tt.returned))
			assert.Equal(t, 1, f.bus.count(shared.EventAssignmentCompleted))
		})
	}
}

func TestCompleteAssignment_FreezesBasesAndDefaults(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))

	res, err := command.NewCompleteAssignmentHandler(f.env()).Handle(f.ctx, command.CompleteAssignmentCommand{
		AssignmentID: a.ID,
		ReturnedDate: day(8, 10),
		QuizScore:    ptr(6),
		Notes:        ptr("  finished early  "),
	})
	require.NoError(t, err)

	got := f.assignment(a.ID)
	assert.Equal(t, "finished early", got.Notes)
	c, ok := got.Completion()
	require.True(t, ok)
	assert.Equal(t, assignment.Scores{ReadingBase: 20, QuizBase: 10, ReadingEarned: 20, QuizEarned: 6}, c.Scores)
	assert.Equal(t, 120, got.PagesRead)
	assert.Equal(t, day(10, 10), got.DueDate)
	assert.Equal(t, 26, res.Completion.Scores.Total())
	assert.Equal(t, 26, f.total(m.ID))
}

func TestCompleteAssignment_DefaultsReturnToNow(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(12, 10))

	res := f.complete(a.ID, time.Time{})

	assert.Equal(t, f.now, res.Completion.ReturnedDate)
	assert.Equal(t, 30, f.weekScore(m.ID, f.now))
}

func TestCompleteAssignment_Rejections(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))
	f.complete(a.ID, day(8, 10))

	h := command.NewCompleteAssignmentHandler(f.env())

	_, err := h.Handle(f.ctx, command.CompleteAssignmentCommand{AssignmentID: a.ID})
	assert.ErrorIs(t, err, shared.ErrAlreadyCompleted)
	assert.True(t, shared.IsInvalidState(err))
	assert.Equal(t, 30, f.total(m.ID))

	_, err = h.Handle(f.ctx, command.CompleteAssignmentCommand{AssignmentID: "missing"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(f.ctx, command.CompleteAssignmentCommand{AssignmentID: a.ID, QuizScore: ptr(101)})
	assert.ErrorIs(t, err, shared.ErrQuizScoreOutOfRange)

	_, err = h.Handle(f.ctx, command.CompleteAssignmentCommand{})
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// Creation
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateAssignment_DerivesDueDate(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 5, 3)
	m := f.member("Sara")

	a := f.lend(m.ID, b.ID, day(1, 8))

	assert.Equal(t, day(6, 8), a.DueDate)
	assert.Equal(t, assignment.StatusPending, a.Status())
	assert.Equal(t, 0, f.total(m.ID))
	assert.Equal(t, 1, f.bus.count(shared.EventAssignmentCreated))
}

func TestCreateAssignment_WithReturnedDateSettles(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 1)
	m := f.member("Sara")

	res, err := command.NewCreateAssignmentHandler(f.env()).Handle(f.ctx, command.CreateAssignmentCommand{
		MemberID:     m.ID,
		BookID:       b.ID,
		AssignedDate: day(1, 10),
		ReturnedDate: ptr(day(5, 10)),
		QuizScore:    ptr(8),
	})
	require.NoError(t, err)

	assert.True(t, res.Assignment.IsCompleted())
	assert.Equal(t, 28, f.total(m.ID))
	assert.Equal(t, 28, f.weekScore(m.ID, day(5, 10)))
}

func TestCreateAssignment_BorrowingRules(t *testing.T) {
	f := newFixture(t)
	s1, s2 := f.stages()
	single := f.book(s1.ID, 20, 10, 7, 1)
	other := f.book(s2.ID, 20, 10, 7, 1)
	m1 := f.member("Sara")
	m2 := f.member("Ali")
	h := command.NewCreateAssignmentHandler(f.env())

	_, err := h.Handle(f.ctx, command.CreateAssignmentCommand{MemberID: m1.ID, BookID: other.ID})
	assert.ErrorIs(t, err, shared.ErrBookNotInStage)

	a := f.lend(m1.ID, single.ID, day(1, 10))
	_, err = h.Handle(f.ctx, command.CreateAssignmentCommand{MemberID: m2.ID, BookID: single.ID})
	assert.ErrorIs(t, err, shared.ErrNoCopiesAvailable)

	f.complete(a.ID, day(4, 10))
	_, err = h.Handle(f.ctx, command.CreateAssignmentCommand{MemberID: m1.ID, BookID: single.ID})
	assert.ErrorIs(t, err, shared.ErrBookAlreadyRead)

	_, err = command.NewMemberHandler(f.env()).UpdateMember(f.ctx, command.UpdateMemberCommand{MemberID: m2.ID, IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = h.Handle(f.ctx, command.CreateAssignmentCommand{MemberID: m2.ID, BookID: single.ID})
	assert.ErrorIs(t, err, shared.ErrMemberNotActive)

	_, err = h.Handle(f.ctx, command.CreateAssignmentCommand{MemberID: m2.ID})
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// Updates
// ══════════════════════════════════════════════════════════════════════════════

func TestUpdateAssignment_ReassignMovesLedgerAndWeek(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m1 := f.member("Sara")
	m2 := f.member("Ali")
	a := f.lend(m1.ID, b.ID, day(10, 10))
	f.complete(a.ID, day(12, 10))
	require.Equal(t, 30, f.total(m1.ID))

	res, err := command.NewUpdateAssignmentHandler(f.env()).Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID: a.ID,
		MemberID:     ptr(m2.ID),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.total(m1.ID))
	assert.Equal(t, 30, f.total(m2.ID))
	assert.Equal(t, 0, f.weekScore(m1.ID, day(12, 10)))
	assert.Equal(t, 30, f.weekScore(m2.ID, day(12, 10)))
	assert.Equal(t, m1.ID, res.Before.MemberID)
	assert.Equal(t, m2.ID, res.After.MemberID)
	assert.Equal(t, m2.ID, f.assignment(a.ID).MemberID)
}

func TestUpdateAssignment_RescheduleAcrossWeeks(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))
	f.complete(a.ID, day(6, 10))
	require.Equal(t, 30, f.weekScore(m.ID, day(6, 10)))

	_, err := command.NewUpdateAssignmentHandler(f.env()).Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID: a.ID,
		ReturnedDate: ptr(day(12, 11)),
	})
	require.NoError(t, err)

	// Due 03-10 10:00, returned 03-12 11:00: two full late days.
	assert.Equal(t, 26, f.total(m.ID))
	assert.Equal(t, 0, f.weekScore(m.ID, day(6, 10)))
	assert.Equal(t, 26, f.weekScore(m.ID, day(12, 11)))

	c, ok := f.assignment(a.ID).Completion()
	require.True(t, ok)
	assert.Equal(t, 2, c.LateDays)
	assert.Equal(t, 20, c.Scores.ReadingBase)
}

func TestUpdateAssignment_ReassignToAnotherWeekAndMember(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m1 := f.member("Sara")
	m2 := f.member("Ali")
	a := f.lend(m1.ID, b.ID, day(3, 10))
	f.complete(a.ID, day(6, 10))

	_, err := command.NewUpdateAssignmentHandler(f.env()).Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID: a.ID,
		MemberID:     ptr(m2.ID),
		ReturnedDate: ptr(day(9, 10)),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.total(m1.ID))
	assert.Equal(t, 0, f.weekScore(m1.ID, day(6, 10)))
	assert.Equal(t, 30, f.total(m2.ID))
	assert.Equal(t, 30, f.weekScore(m2.ID, day(9, 10)))
	assert.Equal(t, 0, f.weekScore(m2.ID, day(6, 10)))
}

func TestUpdateAssignment_ImplicitCompletion(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))

	h := command.NewUpdateAssignmentHandler(f.env())

	_, err := h.Handle(f.ctx, command.UpdateAssignmentCommand{AssignmentID: a.ID, QuizScore: ptr(4)})
	assert.True(t, shared.IsValidation(err))

	res, err := h.Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID: a.ID,
		ReturnedDate: ptr(day(9, 10)),
		QuizScore:    ptr(4),
	})
	require.NoError(t, err)

	assert.True(t, res.Assignment.IsCompleted())
	assert.Equal(t, 24, f.total(m.ID))
	assert.Equal(t, 1, f.bus.count(shared.EventAssignmentCompleted))
}

func TestUpdateAssignment_ReopenReversesContribution(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))
	f.complete(a.ID, day(9, 10))

	res, err := command.NewUpdateAssignmentHandler(f.env()).Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID:  a.ID,
		ClearReturned: true,
	})
	require.NoError(t, err)

	assert.Equal(t, assignment.StatusPending, res.Assignment.Status())
	assert.Nil(t, f.assignment(a.ID).ReturnedDate())
	assert.Equal(t, 0, f.total(m.ID))
	assert.Equal(t, 0, f.weekScore(m.ID, day(9, 10)))
	assert.Equal(t, 1, f.bus.count(shared.EventAssignmentReopened))
}

func TestUpdateAssignment_EditNotesKeepsScores(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))
	f.complete(a.ID, day(9, 10))

	_, err := command.NewUpdateAssignmentHandler(f.env()).Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID: a.ID,
		Notes:        ptr("  loved it "),
	})
	require.NoError(t, err)

	assert.Equal(t, "loved it", f.assignment(a.ID).Notes)
	assert.Equal(t, 30, f.total(m.ID))
	assert.Equal(t, 30, f.weekScore(m.ID, day(9, 10)))
}

func TestUpdateAssignment_SettlesStoredReturnDate(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")

	// Imported with a return date and a quiz score but never settled.
	returned := day(12, 9)
	f.store.SeedAssignmentRow(memory.AssignmentRow{
		ID: "a-imported", MemberID: m.ID, BookID: b.ID,
		AssignedDate: day(3, 10), DueDate: day(10, 10),
		ReturnedDate: &returned,
		Scores:       assignment.Scores{QuizEarned: 7},
	})

	res, err := command.NewUpdateAssignmentHandler(f.env()).Handle(f.ctx, command.UpdateAssignmentCommand{
		AssignmentID: "a-imported",
		Notes:        ptr("fixed typo"),
	})
	require.NoError(t, err)

	assert.True(t, res.Assignment.IsCompleted())
	row, ok := f.store.AssignmentRow("a-imported")
	require.True(t, ok)
	assert.True(t, row.IsCompleted)
	require.NotNil(t, row.ReturnedDate)
	assert.Equal(t, returned, *row.ReturnedDate)
	assert.Equal(t, 1, row.LateDays)
	assert.Equal(t, "fixed typo", row.Notes)

	assert.Equal(t, 18+7, f.total(m.ID))
	assert.Equal(t, 18+7, f.weekScore(m.ID, returned))
	assert.Equal(t, 1, f.bus.count(shared.EventAssignmentCompleted))

	normalized, err := command.NewNormalizeReturnedHandler(f.env()).Handle(f.ctx, command.NormalizeReturnedCommand{})
	require.NoError(t, err)
	assert.Equal(t, 0, normalized.Scanned)
}

// ══════════════════════════════════════════════════════════════════════════════
// Deletion and rescaling
// ══════════════════════════════════════════════════════════════════════════════

func TestDeleteAssignment_ReversesAndClampsAtZero(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))
	f.complete(a.ID, day(9, 10))

	_, _, err := f.store.Repositories().Members.AddScore(f.ctx, m.ID, -20)
	require.NoError(t, err)
	require.Equal(t, 10, f.total(m.ID))

	res, err := command.NewDeleteAssignmentHandler(f.env()).Handle(f.ctx, command.DeleteAssignmentCommand{AssignmentID: a.ID})
	require.NoError(t, err)

	assert.Equal(t, 30, res.Reversed.Total)
	assert.Equal(t, 0, f.total(m.ID))
	assert.Equal(t, 0, f.weekScore(m.ID, day(9, 10)))

	_, err = f.store.Repositories().Assignments.GetByID(f.ctx, a.ID)
	assert.ErrorIs(t, err, shared.ErrAssignmentNotFound)
}

func TestDeleteAssignment_PendingTouchesNothing(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 20, 10, 7, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(3, 10))

	res, err := command.NewDeleteAssignmentHandler(f.env()).Handle(f.ctx, command.DeleteAssignmentCommand{AssignmentID: a.ID})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Reversed.Total)
	assert.Equal(t, 0, f.bus.count(shared.EventScoreChanged))
}

func TestChangeBookScore_RescalesCompletedAssignments(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	b := f.book(s1.ID, 50, 0, 3, 3)
	m := f.member("Sara")
	a := f.lend(m.ID, b.ID, day(1, 10))
	// Due 03-04 10:00, returned 03-09 11:00: five late days.
	res := f.complete(a.ID, day(9, 11))
	require.Equal(t, 40, res.Completion.Scores.Total())

	out, err := command.NewChangeBookScoreHandler(f.env()).Handle(f.ctx, command.ChangeBookScoreCommand{
		BookID:       b.ID,
		ReadingScore: 80,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Rescaled)
	assert.Equal(t, 30, out.Delta)
	assert.Equal(t, 70, f.total(m.ID))
	assert.Equal(t, 70, f.weekScore(m.ID, day(9, 11)))

	c, _ := f.assignment(a.ID).Completion()
	assert.Equal(t, 80, c.Scores.ReadingBase)
	assert.Equal(t, 70, c.Scores.ReadingEarned)

	// UpdateBook goes through the same rescale.
	upd, err := f.catalog().UpdateBook(f.ctx, command.UpdateBookCommand{BookID: b.ID, ReadingScore: ptr(60)})
	require.NoError(t, err)
	assert.Equal(t, 1, upd.Rescaled)
	assert.Equal(t, 50, f.total(m.ID))
	assert.Equal(t, 50, f.weekScore(m.ID, day(9, 11)))
}

func TestChangeBookScore_RejectsNegative(t *testing.T) {
	f := newFixture(t)
	_, err := command.NewChangeBookScoreHandler(f.env()).Handle(f.ctx, command.ChangeBookScoreCommand{
		BookID:       "b",
		ReadingScore: -1,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidBookScore)
}
