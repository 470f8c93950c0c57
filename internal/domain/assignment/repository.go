package assignment

import (
	"context"
	"time"
)

// Filter narrows assignment listings. Zero fields match everything.
type Filter struct {
	MemberID string
	BookID   string
	Status   Status
}

// Matches reports whether a passes the filter.
func (f Filter) Matches(a *Assignment) bool {
	if f.MemberID != "" && a.MemberID != f.MemberID {
		return false
	}
	if f.BookID != "" && a.BookID != f.BookID {
		return false
	}
	if f.Status != "" && a.Status() != f.Status {
		return false
	}
	return true
}

// Unsettled is a stored row whose completion flag disagrees with its returned
// date. ReturnedDate nil means the row is flagged completed without a date.
type Unsettled struct {
	Assignment   *Assignment
	ReturnedDate *time.Time
	Seed         Scores
}

// Repository persists assignments.
type Repository interface {
	Create(ctx context.Context, a *Assignment) error

	// GetByID returns ErrAssignmentNotFound when the row does not exist.
	GetByID(ctx context.Context, id string) (*Assignment, error)

	// GetForUpdate is GetByID that locks the row until the unit of work ends.
	GetForUpdate(ctx context.Context, id string) (*Assignment, error)

	// Update writes every field. returned_date and is_completed are derived
	// from State.
	Update(ctx context.Context, a *Assignment) error

	Delete(ctx context.Context, id string) error

	// List returns matching assignments, newest assigned date first.
	List(ctx context.Context, filter Filter) ([]*Assignment, error)

	// ListCompletedByBook returns every completed assignment of a book.
	ListCompletedByBook(ctx context.Context, bookID string) ([]*Assignment, error)

	// ListPendingDueBetween returns pending assignments with from <= due < to.
	ListPendingDueBetween(ctx context.Context, from, to time.Time) ([]*Assignment, error)

	// CountPendingByBook returns the copies currently on loan.
	CountPendingByBook(ctx context.Context, bookID string) (int, error)

	// CompletedBookIDs returns the distinct books the member has completed.
	CompletedBookIDs(ctx context.Context, memberID string) (map[string]bool, error)

	// ListUnsettledReturns returns the ids of rows needing normalization.
	ListUnsettledReturns(ctx context.Context) ([]string, error)

	// GetUnsettledForUpdate locks and returns one inconsistent row, or nil
	// when it has been settled in the meantime.
	GetUnsettledForUpdate(ctx context.Context, id string) (*Unsettled, error)
}
