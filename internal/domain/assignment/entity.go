// Package assignment holds the borrow/return lifecycle of a book loan and the
// scoring math applied when a loan is settled.
//
// An assignment is either Pending or Completed. Only Completed carries a
// returned date and frozen scores, so "returned but not scored" cannot be
// represented by the type. Storage rows that disagree with this are surfaced
// through Repository.ListUnsettledReturns and healed by normalization.
package assignment

import (
	"time"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// Status is the storage and filter label of a state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// State is the tagged lifecycle state of an assignment.
type State interface {
	Status() Status
	isState()
}

// Pending is a loan that has not been returned.
type Pending struct{}

func (Pending) Status() Status { return StatusPending }
func (Pending) isState()       {}

// Scores are frozen at return time and only change through rescaling.
type Scores struct {
	ReadingBase   int
	QuizBase      int
	ReadingEarned int
	QuizEarned    int
}

// Total is what the assignment contributes to the ledger.
func (s Scores) Total() int {
	return s.ReadingEarned + s.QuizEarned
}

// Penalty is the reading points lost to lateness.
func (s Scores) Penalty() int {
	if p := s.ReadingBase - s.ReadingEarned; p > 0 {
		return p
	}
	return 0
}

// IsZero reports whether no score has been recorded.
func (s Scores) IsZero() bool {
	return s == Scores{}
}

// Completed is a returned and scored loan.
type Completed struct {
	ReturnedDate time.Time
	LateDays     int
	Scores       Scores
}

func (Completed) Status() Status { return StatusCompleted }
func (Completed) isState()       {}

// Assignment is one loan of a book to a member.
type Assignment struct {
	ID           string
	MemberID     string
	BookID       string
	AssignedDate time.Time

	// DueDate is derived from the book's reading days when zero.
	DueDate time.Time

	PagesRead int
	Notes     string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a pending assignment.
func New(id, memberID, bookID string, assigned, due time.Time, notes string, now time.Time) (*Assignment, error) {
	a := &Assignment{
		ID:           id,
		MemberID:     memberID,
		BookID:       bookID,
		AssignedDate: assigned,
		DueDate:      due,
		Notes:        notes,
		State:        Pending{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.ID == "" || a.MemberID == "" || a.BookID == "" {
		return nil, shared.NewDomainError("assignment", "Create", shared.ErrInvalidID, "assignment, member and book ids are required")
	}
	if a.AssignedDate.IsZero() {
		return nil, shared.NewDomainError("assignment", "Create", shared.ErrEmptyValue, "assigned date is required")
	}
	if !a.DueDate.IsZero() && a.DueDate.Before(a.AssignedDate) {
		return nil, shared.NewDomainError("assignment", "Create", shared.ErrValidation, "due date is before the assigned date")
	}
	return a, nil
}

// Status returns the state label, treating a nil state as pending.
func (a *Assignment) Status() Status {
	if a.State == nil {
		return StatusPending
	}
	return a.State.Status()
}

// IsCompleted reports whether the assignment is settled.
func (a *Assignment) IsCompleted() bool {
	_, ok := a.Completion()
	return ok
}

// Completion returns the completed state when there is one.
func (a *Assignment) Completion() (Completed, bool) {
	c, ok := a.State.(Completed)
	return c, ok
}

// ReturnedDate returns the return instant of a completed assignment.
func (a *Assignment) ReturnedDate() *time.Time {
	if c, ok := a.Completion(); ok {
		t := c.ReturnedDate
		return &t
	}
	return nil
}

// Reopen drops the completion and its frozen scores.
func (a *Assignment) Reopen(now time.Time) {
	a.State = Pending{}
	a.UpdatedAt = now
}

// Contribution is what a completed assignment adds to the ledger and to the
// weekly bucket of its return week. The zero value contributes nothing.
type Contribution struct {
	MemberID string
	Total    int
	At       *time.Time
}

// Contribution returns the current contribution of the assignment.
func (a *Assignment) Contribution() Contribution {
	c, ok := a.Completion()
	if !ok {
		return Contribution{MemberID: a.MemberID}
	}
	at := c.ReturnedDate
	return Contribution{MemberID: a.MemberID, Total: c.Scores.Total(), At: &at}
}

// Clone returns a copy that can be mutated independently.
func (a *Assignment) Clone() *Assignment {
	cp := *a
	return &cp
}
