package assignment

import (
	"math"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// DefaultPenaltyPerLateDay is the reading points lost per full late day.
const DefaultPenaltyPerLateDay = 2

// MaxQuizScore bounds an explicitly entered quiz score.
const MaxQuizScore = 100

// Rules carries the configurable parts of scoring.
type Rules struct {
	PenaltyPerLateDay int
	Location          *time.Location
}

// DefaultRules uses the default penalty and UTC.
func DefaultRules() Rules {
	return Rules{PenaltyPerLateDay: DefaultPenaltyPerLateDay, Location: time.UTC}
}

func (r Rules) loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// DueDate is assigned + readingDays calendar days in the club timezone.
func (r Rules) DueDate(assigned time.Time, readingDays int) time.Time {
	return assigned.In(r.loc()).AddDate(0, 0, readingDays)
}

// LateDays counts full days between due and returned on the local wall clock.
// A return at or before due is never late, and neither is one that reads
// earlier on the wall clock after the clocks fall back.
func (r Rules) LateDays(due, returned time.Time) int {
	if !returned.After(due) {
		return 0
	}
	return max(timeutil.FullDays(timeutil.WallClockSub(returned, due, r.loc())), 0)
}

// ReadingEarned applies the late penalty to base, floored at zero.
func (r Rules) ReadingEarned(base, lateDays int) int {
	if earned := base - lateDays*r.PenaltyPerLateDay; earned > 0 {
		return earned
	}
	return 0
}

// ValidateQuiz checks an explicitly entered quiz score.
func ValidateQuiz(score int) error {
	if score < 0 || score > MaxQuizScore {
		return shared.ErrQuizScoreOutOfRange
	}
	return nil
}

// Settlement is the input of a completion.
type Settlement struct {
	Returned time.Time

	// Quiz is an explicitly entered quiz score.
	Quiz *int

	// Seed holds scores already present on a row being healed. Non-zero
	// bases and a non-zero earned quiz take precedence over the book.
	Seed Scores
}

// Settle moves a onto the Completed state for the given return, deriving the
// due date and pages read when they are unset. It is the single entry point
// for explicit completion, implicit completion on update and normalization.
func (r Rules) Settle(a *Assignment, b *book.Book, s Settlement, now time.Time) (Completed, error) {
	if s.Quiz != nil {
		if err := ValidateQuiz(*s.Quiz); err != nil {
			return Completed{}, err
		}
	}
	if s.Returned.IsZero() {
		return Completed{}, shared.NewDomainError("assignment", "Complete", shared.ErrEmptyValue, "returned date is required")
	}

	if a.DueDate.IsZero() {
		a.DueDate = r.DueDate(a.AssignedDate, b.ReadingDays)
	}
	if a.PagesRead == 0 {
		a.PagesRead = b.PageCount
	}

	scores := Scores{
		ReadingBase: b.ReadingScore,
		QuizBase:    b.QuizScore,
	}
	if s.Seed.ReadingBase > 0 {
		scores.ReadingBase = s.Seed.ReadingBase
	}
	if s.Seed.QuizBase > 0 {
		scores.QuizBase = s.Seed.QuizBase
	}

	switch {
	case s.Quiz != nil:
		scores.QuizEarned = *s.Quiz
	case s.Seed.QuizEarned > 0:
		scores.QuizEarned = s.Seed.QuizEarned
	default:
		scores.QuizEarned = b.QuizScore
	}

	late := r.LateDays(a.DueDate, s.Returned)
	scores.ReadingEarned = r.ReadingEarned(scores.ReadingBase, late)

	c := Completed{
		ReturnedDate: s.Returned,
		LateDays:     late,
		Scores:       scores,
	}
	a.State = c
	a.UpdatedAt = now
	return c, nil
}

// Reschedule recomputes lateness of a completed assignment for a new return
// date from its frozen bases. quiz replaces the earned quiz when set.
func (r Rules) Reschedule(a *Assignment, returned time.Time, quiz *int, now time.Time) (Completed, error) {
	c, ok := a.Completion()
	if !ok {
		return Completed{}, shared.NewDomainError("assignment", "Reschedule", shared.ErrInvalidState, "assignment is not completed")
	}
	if quiz != nil {
		if err := ValidateQuiz(*quiz); err != nil {
			return Completed{}, err
		}
		c.Scores.QuizEarned = *quiz
	}
	c.ReturnedDate = returned
	c.LateDays = r.LateDays(a.DueDate, returned)
	c.Scores.ReadingEarned = r.ReadingEarned(c.Scores.ReadingBase, c.LateDays)

	a.State = c
	a.UpdatedAt = now
	return c, nil
}

// Rescale moves frozen scores onto new book bases. The reading penalty is
// carried over as an absolute amount and the quiz keeps its proportion.
func Rescale(old Scores, newReading, newQuiz int) Scores {
	reading := newReading - old.Penalty()
	if reading < 0 {
		reading = 0
	}

	var quiz int
	if old.QuizBase > 0 {
		quiz = int(math.Round(float64(old.QuizEarned) / float64(old.QuizBase) * float64(newQuiz)))
	} else {
		quiz = min(old.QuizEarned, newQuiz)
	}

	return Scores{
		ReadingBase:   newReading,
		QuizBase:      newQuiz,
		ReadingEarned: reading,
		QuizEarned:    quiz,
	}
}

// PenaltyAmount is the reading penalty of a. For a pending loan it is the
// penalty it would receive if returned at now.
func (r Rules) PenaltyAmount(a *Assignment, b *book.Book, now time.Time) int {
	if c, ok := a.Completion(); ok {
		return c.Scores.Penalty()
	}

	due := a.DueDate
	if due.IsZero() {
		due = r.DueDate(a.AssignedDate, b.ReadingDays)
	}
	projected := r.LateDays(due, now) * r.PenaltyPerLateDay
	return min(b.ReadingScore, projected)
}
