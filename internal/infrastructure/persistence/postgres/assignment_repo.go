package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentRepository implements assignment.Repository for PostgreSQL.
type AssignmentRepository struct {
	q Querier
}

const assignmentColumns = `id, member_id, book_id, assigned_date, due_date, returned_date, is_completed,
	late_days, reading_score_base, quiz_score_base, reading_score_earned, quiz_score_earned,
	pages_read, notes, created_at, updated_at`

// A row is completed only when both columns agree.
const (
	completedCond = `(is_completed AND returned_date IS NOT NULL)`
	pendingCond   = `(NOT is_completed AND returned_date IS NULL)`
	unsettledCond = `(is_completed <> (returned_date IS NOT NULL))`
)

// assignmentRow holds the raw columns, including the derived pair.
type assignmentRow struct {
	a            assignment.Assignment
	dueDate      *time.Time
	returnedDate *time.Time
	isCompleted  bool
	lateDays     int
	scores       assignment.Scores
}

func scanAssignmentRow(row pgx.Row) (*assignmentRow, error) {
	var r assignmentRow
	err := row.Scan(
		&r.a.ID, &r.a.MemberID, &r.a.BookID, &r.a.AssignedDate, &r.dueDate, &r.returnedDate, &r.isCompleted,
		&r.lateDays, &r.scores.ReadingBase, &r.scores.QuizBase, &r.scores.ReadingEarned, &r.scores.QuizEarned,
		&r.a.PagesRead, &r.a.Notes, &r.a.CreatedAt, &r.a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.dueDate != nil {
		r.a.DueDate = *r.dueDate
	}
	return &r, nil
}

// toAssignment reads the state: an inconsistent row is seen as pending until
// it is normalized.
func (r *assignmentRow) toAssignment() *assignment.Assignment {
	a := r.a
	a.State = assignment.Pending{}
	if r.isCompleted && r.returnedDate != nil {
		a.State = assignment.Completed{
			ReturnedDate: *r.returnedDate,
			LateDays:     r.lateDays,
			Scores:       r.scores,
		}
	}
	return &a
}

func (r *assignmentRow) unsettled() bool {
	return r.isCompleted != (r.returnedDate != nil)
}

// columnValues derives returned_date, is_completed and the score columns
// from the state.
func columnValues(a *assignment.Assignment) (due, returned *time.Time, completed bool, lateDays int, s assignment.Scores) {
	if !a.DueDate.IsZero() {
		d := a.DueDate
		due = &d
	}
	if c, ok := a.Completion(); ok {
		r := c.ReturnedDate
		return due, &r, true, c.LateDays, c.Scores
	}
	return due, nil, false, 0, assignment.Scores{}
}

func (r *AssignmentRepository) getOne(ctx context.Context, query string, id string) (*assignmentRow, error) {
	row, err := scanAssignmentRow(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return row, nil
}

func (r *AssignmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*assignment.Assignment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []*assignment.Assignment
	for rows.Next() {
		row, err := scanAssignmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, row.toAssignment())
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create stores a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *assignment.Assignment) error {
	due, returned, completed, lateDays, s := columnValues(a)
	_, err := r.q.Exec(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, a.ID, a.MemberID, a.BookID, a.AssignedDate, due, returned, completed,
		lateDays, s.ReadingBase, s.QuizBase, s.ReadingEarned, s.QuizEarned,
		a.PagesRead, a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("assignment", "Create", shared.ErrAlreadyExists, "assignment already exists")
		}
		if IsForeignKeyViolation(err) {
			return shared.NewDomainError("assignment", "Create", shared.ErrNotFound, "member or book not found")
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetByID returns an assignment by ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*assignment.Assignment, error) {
	row, err := r.getOne(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return row.toAssignment(), nil
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *AssignmentRepository) GetForUpdate(ctx context.Context, id string) (*assignment.Assignment, error) {
	row, err := r.getOne(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return row.toAssignment(), nil
}

// Update writes every field; the derived columns follow the state.
func (r *AssignmentRepository) Update(ctx context.Context, a *assignment.Assignment) error {
	due, returned, completed, lateDays, s := columnValues(a)
	tag, err := r.q.Exec(ctx, `
		UPDATE assignments
		SET member_id = $2, book_id = $3, assigned_date = $4, due_date = $5, returned_date = $6,
		    is_completed = $7, late_days = $8, reading_score_base = $9, quiz_score_base = $10,
		    reading_score_earned = $11, quiz_score_earned = $12, pages_read = $13, notes = $14,
		    updated_at = $15
		WHERE id = $1
	`, a.ID, a.MemberID, a.BookID, a.AssignedDate, due, returned,
		completed, lateDays, s.ReadingBase, s.QuizBase,
		s.ReadingEarned, s.QuizEarned, a.PagesRead, a.Notes,
		a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAssignmentNotFound
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAssignmentNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// List returns matching assignments, newest assigned date first.
func (r *AssignmentRepository) List(ctx context.Context, filter assignment.Filter) ([]*assignment.Assignment, error) {
	return r.list(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE ($1 = '' OR member_id = $1)
		  AND ($2 = '' OR book_id = $2)
		  AND ($3 = '' OR ($3 = 'completed') = `+completedCond+`)
		ORDER BY assigned_date DESC, id
	`, filter.MemberID, filter.BookID, string(filter.Status))
}

// ListCompletedByBook returns every completed assignment of a book.
func (r *AssignmentRepository) ListCompletedByBook(ctx context.Context, bookID string) ([]*assignment.Assignment, error) {
	return r.list(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE book_id = $1 AND `+completedCond+`
		ORDER BY assigned_date DESC, id
	`, bookID)
}

// ListPendingDueBetween returns pending assignments with from <= due < to.
func (r *AssignmentRepository) ListPendingDueBetween(ctx context.Context, from, to time.Time) ([]*assignment.Assignment, error) {
	return r.list(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE `+pendingCond+` AND due_date >= $1 AND due_date < $2
		ORDER BY assigned_date DESC, id
	`, from, to)
}

// CountPendingByBook returns the copies currently on loan.
func (r *AssignmentRepository) CountPendingByBook(ctx context.Context, bookID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM assignments WHERE book_id = $1 AND `+pendingCond,
		bookID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending assignments: %w", err)
	}
	return n, nil
}

// CompletedBookIDs returns the distinct books the member has completed.
func (r *AssignmentRepository) CompletedBookIDs(ctx context.Context, memberID string) (map[string]bool, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT book_id FROM assignments
		WHERE member_id = $1 AND `+completedCond,
		memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed books: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Normalization
// ─────────────────────────────────────────────────────────────────────────────

// ListUnsettledReturns returns the ids of rows whose completion flag and
// returned date disagree.
func (r *AssignmentRepository) ListUnsettledReturns(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM assignments WHERE `+unsettledCond+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled returns: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetUnsettledForUpdate locks the row and returns it when it still needs
// normalization, nil otherwise.
func (r *AssignmentRepository) GetUnsettledForUpdate(ctx context.Context, id string) (*assignment.Unsettled, error) {
	row, err := r.getOne(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	if !row.unsettled() {
		return nil, nil
	}
	return &assignment.Unsettled{
		Assignment:   row.toAssignment(),
		ReturnedDate: row.returnedDate,
		Seed:         row.scores,
	}, nil
}

var _ assignment.Repository = (*AssignmentRepository)(nil)
