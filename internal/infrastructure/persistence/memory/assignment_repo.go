package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

func rowFromAssignment(a *assignment.Assignment) AssignmentRow {
	row := AssignmentRow{
		ID:           a.ID,
		MemberID:     a.MemberID,
		BookID:       a.BookID,
		AssignedDate: a.AssignedDate,
		DueDate:      a.DueDate,
		PagesRead:    a.PagesRead,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if c, ok := a.Completion(); ok {
		returned := c.ReturnedDate
		row.ReturnedDate = &returned
		row.IsCompleted = true
		row.LateDays = c.LateDays
		row.Scores = c.Scores
	}
	return row
}

// toAssignment reads a row. Only a consistent completed row becomes
// Completed; anything else is seen as pending until normalized.
func (row AssignmentRow) toAssignment() *assignment.Assignment {
	a := &assignment.Assignment{
		ID:           row.ID,
		MemberID:     row.MemberID,
		BookID:       row.BookID,
		AssignedDate: row.AssignedDate,
		DueDate:      row.DueDate,
		PagesRead:    row.PagesRead,
		Notes:        row.Notes,
		State:        assignment.Pending{},
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.IsCompleted && row.ReturnedDate != nil {
		a.State = assignment.Completed{
			ReturnedDate: *row.ReturnedDate,
			LateDays:     row.LateDays,
			Scores:       row.Scores,
		}
	}
	return a
}

func (row AssignmentRow) unsettled() bool {
	return row.IsCompleted != (row.ReturnedDate != nil)
}

// AssignmentRepository implements assignment.Repository.
type AssignmentRepository struct {
	h *handle
}

func (r *AssignmentRepository) Create(_ context.Context, a *assignment.Assignment) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.assignments[a.ID]; ok {
		return shared.NewDomainError("assignment", "Create", shared.ErrAlreadyExists, "assignment already exists")
	}
	st.assignments[a.ID] = rowFromAssignment(a)
	return nil
}

func (r *AssignmentRepository) GetByID(_ context.Context, id string) (*assignment.Assignment, error) {
	st, done := r.h.read()
	defer done()

	row, ok := st.assignments[id]
	if !ok {
		return nil, shared.ErrAssignmentNotFound
	}
	return row.toAssignment(), nil
}

// GetForUpdate needs no row lock: a transaction already holds the store lock.
func (r *AssignmentRepository) GetForUpdate(ctx context.Context, id string) (*assignment.Assignment, error) {
	return r.GetByID(ctx, id)
}

func (r *AssignmentRepository) Update(_ context.Context, a *assignment.Assignment) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.assignments[a.ID]; !ok {
		return shared.ErrAssignmentNotFound
	}
	st.assignments[a.ID] = rowFromAssignment(a)
	return nil
}

func (r *AssignmentRepository) Delete(_ context.Context, id string) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.assignments[id]; !ok {
		return shared.ErrAssignmentNotFound
	}
	delete(st.assignments, id)
	return nil
}

func (r *AssignmentRepository) List(_ context.Context, filter assignment.Filter) ([]*assignment.Assignment, error) {
	st, done := r.h.read()
	defer done()

	var out []*assignment.Assignment
	for _, row := range st.assignments {
		a := row.toAssignment()
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (r *AssignmentRepository) ListCompletedByBook(ctx context.Context, bookID string) ([]*assignment.Assignment, error) {
	return r.List(ctx, assignment.Filter{BookID: bookID, Status: assignment.StatusCompleted})
}

func (r *AssignmentRepository) ListPendingDueBetween(_ context.Context, from, to time.Time) ([]*assignment.Assignment, error) {
	st, done := r.h.read()
	defer done()

	var out []*assignment.Assignment
	for _, row := range st.assignments {
		if row.IsCompleted || row.ReturnedDate != nil || row.DueDate.IsZero() {
			continue
		}
		if !row.DueDate.Before(from) && row.DueDate.Before(to) {
			out = append(out, row.toAssignment())
		}
	}
	sortAssignments(out)
	return out, nil
}

func (r *AssignmentRepository) CountPendingByBook(_ context.Context, bookID string) (int, error) {
	st, done := r.h.read()
	defer done()

	n := 0
	for _, row := range st.assignments {
		if row.BookID == bookID && !row.IsCompleted && row.ReturnedDate == nil {
			n++
		}
	}
	return n, nil
}

func (r *AssignmentRepository) CompletedBookIDs(_ context.Context, memberID string) (map[string]bool, error) {
	st, done := r.h.read()
	defer done()

	out := map[string]bool{}
	for _, row := range st.assignments {
		if row.MemberID == memberID && row.IsCompleted && row.ReturnedDate != nil {
			out[row.BookID] = true
		}
	}
	return out, nil
}

func (r *AssignmentRepository) ListUnsettledReturns(_ context.Context) ([]string, error) {
	st, done := r.h.read()
	defer done()

	var ids []string
	for id, row := range st.assignments {
		if row.unsettled() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *AssignmentRepository) GetUnsettledForUpdate(_ context.Context, id string) (*assignment.Unsettled, error) {
	st, done := r.h.read()
	defer done()

	row, ok := st.assignments[id]
	if !ok {
		return nil, shared.ErrAssignmentNotFound
	}
	if !row.unsettled() {
		return nil, nil
	}

	u := &assignment.Unsettled{
		Assignment: row.toAssignment(),
		Seed:       row.Scores,
	}
	if row.ReturnedDate != nil {
		returned := *row.ReturnedDate
		u.ReturnedDate = &returned
	}
	return u, nil
}

func sortAssignments(list []*assignment.Assignment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].AssignedDate.Equal(list[j].AssignedDate) {
			return list[i].AssignedDate.After(list[j].AssignedDate)
		}
		return list[i].ID < list[j].ID
	})
}
