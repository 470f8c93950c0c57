package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

func intPtr(v int) *int { return &v }

func testBook() *book.Book {
	return &book.Book{
		ID:           "book-1",
		StageID:      "stage-1",
		Title:        "The Little Prince",
		ReadingScore: 20,
		QuizScore:    10,
		ReadingDays:  3,
		PageCount:    96,
		StockCount:   1,
	}
}

func pendingAssignment(t *testing.T, assigned, due time.Time) *Assignment {
	t.Helper()
	a, err := New("a-1", "m-1", "book-1", assigned, due, "", assigned)
	require.NoError(t, err)
	return a
}

func TestLateDays_Boundaries(t *testing.T) {
	rules := DefaultRules()
	due := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		returned time.Time
		want     int
	}{
		{"before due", due.Add(-48 * time.Hour), 0},
		{"exactly at due", due, 0},
		{"one second late", due.Add(time.Second), 0},
		{"just under one day", due.Add(24*time.Hour - time.Second), 0},
		{"exactly one day", due.Add(24 * time.Hour), 1},
		{"one day and a second", due.Add(24*time.Hour + time.Second), 1},
		{"three and a half days", due.Add(84 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.LateDays(due, tt.returned))
		})
	}
}

func TestLateDays_ComparesLocalWallClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	rules := Rules{PenaltyPerLateDay: 2, Location: ny}

	// 23 real hours across the spring-forward night are a full local day.
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, ny)
	returned := time.Date(2024, 3, 11, 0, 0, 0, 0, ny)
	assert.Equal(t, 1, rules.LateDays(due, returned))

	// Fall back: 01:30 EDT due, returned 40 minutes later at 01:10 EST.
	due = time.Date(2024, 11, 3, 5, 30, 0, 0, time.UTC)
	returned = time.Date(2024, 11, 3, 6, 10, 0, 0, time.UTC)
	require.True(t, returned.After(due))
	assert.Equal(t, 0, rules.LateDays(due, returned))
	assert.Equal(t, 50, rules.ReadingEarned(50, rules.LateDays(due, returned)))
}

func TestSettle_OnTime(t *testing.T) {
	rules := DefaultRules()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := pendingAssignment(t, assigned, time.Time{})
	b := testBook()

	c, err := rules.Settle(a, b, Settlement{Returned: assigned.Add(48 * time.Hour), Quiz: intPtr(8)}, assigned)
	require.NoError(t, err)

	assert.Equal(t, assigned.AddDate(0, 0, 3), a.DueDate, "due date derived from reading days")
	assert.Equal(t, 96, a.PagesRead, "pages default to page count")
	assert.Equal(t, 0, c.LateDays)
	assert.Equal(t, Scores{ReadingBase: 20, QuizBase: 10, ReadingEarned: 20, QuizEarned: 8}, c.Scores)
	assert.Equal(t, 28, c.Scores.Total())
	assert.True(t, a.IsCompleted())
}

func TestSettle_LatePenaltyFloorsAtZero(t *testing.T) {
	rules := DefaultRules()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	due := assigned.AddDate(0, 0, 3)

	a := pendingAssignment(t, assigned, due)
	c, err := rules.Settle(a, testBook(), Settlement{Returned: due.Add(5*24*time.Hour + time.Hour)}, assigned)
	require.NoError(t, err)
	assert.Equal(t, 5, c.LateDays)
	assert.Equal(t, 10, c.Scores.ReadingEarned)
	assert.Equal(t, 10, c.Scores.QuizEarned, "quiz defaults to the book quiz score")

	a = pendingAssignment(t, assigned, due)
	c, err = rules.Settle(a, testBook(), Settlement{Returned: due.AddDate(0, 0, 30)}, assigned)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Scores.ReadingEarned)
	assert.Equal(t, 20, c.Scores.Penalty())
}

func TestSettle_SeedTakesPrecedence(t *testing.T) {
	rules := DefaultRules()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := pendingAssignment(t, assigned, assigned.AddDate(0, 0, 3))

	seed := Scores{ReadingBase: 50, QuizBase: 0, QuizEarned: 7}
	c, err := rules.Settle(a, testBook(), Settlement{Returned: assigned.Add(time.Hour), Seed: seed}, assigned)
	require.NoError(t, err)

	assert.Equal(t, 50, c.Scores.ReadingBase)
	assert.Equal(t, 10, c.Scores.QuizBase, "zero seed base falls back to the book")
	assert.Equal(t, 7, c.Scores.QuizEarned)
	assert.Equal(t, 50, c.Scores.ReadingEarned)
}

func TestSettle_RejectsQuizOutOfRange(t *testing.T) {
	rules := DefaultRules()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := pendingAssignment(t, assigned, time.Time{})

	_, err := rules.Settle(a, testBook(), Settlement{Returned: assigned, Quiz: intPtr(101)}, assigned)
	assert.ErrorIs(t, err, shared.ErrQuizScoreOutOfRange)
	assert.True(t, shared.IsValidation(err))
	assert.False(t, a.IsCompleted())
}

func TestReschedule_RecomputesFromFrozenBase(t *testing.T) {
	rules := DefaultRules()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	due := assigned.AddDate(0, 0, 3)
	a := pendingAssignment(t, assigned, due)

	_, err := rules.Settle(a, testBook(), Settlement{Returned: due}, assigned)
	require.NoError(t, err)

	c, err := rules.Reschedule(a, due.AddDate(0, 0, 2), nil, assigned)
	require.NoError(t, err)
	assert.Equal(t, 2, c.LateDays)
	assert.Equal(t, 16, c.Scores.ReadingEarned)
	assert.Equal(t, 10, c.Scores.QuizEarned)
}

func TestRescale(t *testing.T) {
	tests := []struct {
		name       string
		old        Scores
		newReading int
		newQuiz    int
		want       Scores
	}{
		{
			name:       "penalty carries over as an absolute amount",
			old:        Scores{ReadingBase: 50, ReadingEarned: 40, QuizBase: 10, QuizEarned: 10},
			newReading: 80, newQuiz: 10,
			want: Scores{ReadingBase: 80, ReadingEarned: 70, QuizBase: 10, QuizEarned: 10},
		},
		{
			name:       "reading floors at zero",
			old:        Scores{ReadingBase: 20, ReadingEarned: 4},
			newReading: 10, newQuiz: 0,
			want: Scores{ReadingBase: 10, ReadingEarned: 0},
		},
		{
			name:       "quiz keeps its proportion, rounding half away from zero",
			old:        Scores{ReadingBase: 10, ReadingEarned: 10, QuizBase: 20, QuizEarned: 15},
			newReading: 10, newQuiz: 10,
			want: Scores{ReadingBase: 10, ReadingEarned: 10, QuizBase: 10, QuizEarned: 8},
		},
		{
			name:       "zero quiz base caps at the new base",
			old:        Scores{ReadingBase: 10, ReadingEarned: 10, QuizBase: 0, QuizEarned: 12},
			newReading: 10, newQuiz: 5,
			want: Scores{ReadingBase: 10, ReadingEarned: 10, QuizBase: 5, QuizEarned: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rescale(tt.old, tt.newReading, tt.newQuiz))
		})
	}
}

func TestPenaltyAmount(t *testing.T) {
	rules := DefaultRules()
	b := testBook()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	due := assigned.AddDate(0, 0, 3)

	pending := pendingAssignment(t, assigned, due)
	assert.Equal(t, 0, rules.PenaltyAmount(pending, b, due))
	assert.Equal(t, 6, rules.PenaltyAmount(pending, b, due.AddDate(0, 0, 3)))
	assert.Equal(t, 20, rules.PenaltyAmount(pending, b, due.AddDate(0, 0, 40)), "capped at reading score")

	undated := pendingAssignment(t, assigned, time.Time{})
	assert.Equal(t, 2, rules.PenaltyAmount(undated, b, due.AddDate(0, 0, 1)), "due derived from reading days")

	completed := pendingAssignment(t, assigned, due)
	_, err := rules.Settle(completed, b, Settlement{Returned: due.AddDate(0, 0, 4)}, assigned)
	require.NoError(t, err)
	assert.Equal(t, 8, rules.PenaltyAmount(completed, b, due.AddDate(0, 0, 40)))
}

func TestContribution(t *testing.T) {
	rules := DefaultRules()
	assigned := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := pendingAssignment(t, assigned, time.Time{})

	c := a.Contribution()
	assert.Nil(t, c.At)
	assert.Equal(t, 0, c.Total)

	returned := assigned.Add(time.Hour)
	_, err := rules.Settle(a, testBook(), Settlement{Returned: returned}, assigned)
	require.NoError(t, err)

	c = a.Contribution()
	require.NotNil(t, c.At)
	assert.Equal(t, returned, *c.At)
	assert.Equal(t, 30, c.Total)
	assert.Equal(t, "m-1", c.MemberID)

	a.Reopen(assigned)
	assert.Equal(t, StatusPending, a.Status())
	assert.Nil(t, a.ReturnedDate())
}

func TestFilterMatches(t *testing.T) {
	a := &Assignment{MemberID: "m-1", BookID: "b-1", State: Pending{}}

	assert.True(t, Filter{}.Matches(a))
	assert.True(t, Filter{MemberID: "m-1", Status: StatusPending}.Matches(a))
	assert.False(t, Filter{Status: StatusCompleted}.Matches(a))
	assert.False(t, Filter{BookID: "b-2"}.Matches(a))
}
