package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ASSIGNMENT COMMAND
// Administrative edit of a loan. Depending on the fields it may complete a
// pending loan, reschedule a completed one, reassign it to another member or
// book, or reopen it. Whatever happens, the ledger and the weekly buckets end
// up reflecting exactly the new contribution.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateAssignmentCommand contains the fields to change. Nil means unchanged.
type UpdateAssignmentCommand struct {
	AssignmentID string

	MemberID     *string
	BookID       *string
	AssignedDate *time.Time
	DueDate      *time.Time

	// ReturnedDate completes a pending assignment or reschedules a
	// completed one.
	ReturnedDate *time.Time

	// ClearReturned reopens a completed assignment.
	ClearReturned bool

	QuizScore *int
	PagesRead *int
	Notes     *string
}

// Validate validates the command.
func (c UpdateAssignmentCommand) Validate() error {
	if c.AssignmentID == "" {
		return invalid("UpdateAssignment", "assignment_id is required")
	}
	if c.ClearReturned && c.ReturnedDate != nil {
		return invalid("UpdateAssignment", "returned_date cannot be set and cleared at once")
	}
	if c.ClearReturned && c.QuizScore != nil {
		return invalid("UpdateAssignment", "quiz_score cannot be set on a reopened assignment")
	}
	if c.MemberID != nil && *c.MemberID == "" {
		return invalid("UpdateAssignment", "member_id must not be empty")
	}
	if c.BookID != nil && *c.BookID == "" {
		return invalid("UpdateAssignment", "book_id must not be empty")
	}
	if c.PagesRead != nil && *c.PagesRead < 0 {
		return invalid("UpdateAssignment", "pages_read must not be negative")
	}
	if c.QuizScore != nil {
		return assignment.ValidateQuiz(*c.QuizScore)
	}
	return nil
}

// UpdateAssignmentResult contains the updated assignment.
type UpdateAssignmentResult struct {
	Assignment *assignment.Assignment

	// Before and After are the contributions that were reconciled.
	Before assignment.Contribution
	After  assignment.Contribution

	Advancement *Advancement

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateAssignmentHandler handles the UpdateAssignmentCommand.
type UpdateAssignmentHandler struct {
	env Env
}

// NewUpdateAssignmentHandler creates a new UpdateAssignmentHandler.
func NewUpdateAssignmentHandler(env Env) *UpdateAssignmentHandler {
	return &UpdateAssignmentHandler{env: env.withDefaults()}
}

// Handle executes the update assignment command.
func (h *UpdateAssignmentHandler) Handle(ctx context.Context, cmd UpdateAssignmentCommand) (*UpdateAssignmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_assignment: %w", err)
	}

	result := &UpdateAssignmentResult{}
	events, err := h.env.run(ctx, "update", func(ctx context.Context, tx *txn) error {
		now := h.env.Now()

		a, err := tx.repos.Assignments.GetForUpdate(ctx, cmd.AssignmentID)
		if err != nil {
			return err
		}
		before := a.Contribution()
		wasCompleted := a.IsCompleted()

		// An imported row can carry a return date that was never settled.
		// It reads as pending, so the stored date must be settled here or
		// the save below would drop it.
		var stored *assignment.Unsettled
		if !wasCompleted {
			if stored, err = tx.repos.Assignments.GetUnsettledForUpdate(ctx, a.ID); err != nil {
				return err
			}
			if stored != nil && stored.ReturnedDate == nil {
				stored = nil
			}
		}

		memberChanged := cmd.MemberID != nil && *cmd.MemberID != a.MemberID
		bookChanged := cmd.BookID != nil && *cmd.BookID != a.BookID
		if memberChanged {
			a.MemberID = *cmd.MemberID
		}
		if bookChanged {
			a.BookID = *cmd.BookID
		}

		b, err := tx.repos.Books.GetByID(ctx, a.BookID)
		if err != nil {
			return err
		}

		// Borrowing rules are checked only when the owner or title changes.
		if memberChanged || bookChanged {
			m, err := tx.repos.Members.GetByID(ctx, a.MemberID)
			if err != nil {
				return err
			}
			stillPending := !cmd.ClearReturned && !wasCompleted && cmd.ReturnedDate == nil && stored == nil
			needCopy := bookChanged && (stillPending || cmd.ClearReturned)
			if err := tx.checkLoan(ctx, m, b, a.ID, needCopy); err != nil {
				return err
			}
		}

		if cmd.AssignedDate != nil {
			a.AssignedDate = *cmd.AssignedDate
		}
		if cmd.DueDate != nil {
			a.DueDate = *cmd.DueDate
		}
		if !a.DueDate.IsZero() && a.DueDate.Before(a.AssignedDate) {
			return invalid("UpdateAssignment", "due date is before the assigned date")
		}
		if cmd.PagesRead != nil {
			a.PagesRead = *cmd.PagesRead
		}
		if cmd.Notes != nil {
			a.Notes = strings.TrimSpace(*cmd.Notes)
		}
		a.UpdatedAt = now

		if err := h.transition(a, b, cmd, stored, wasCompleted, bookChanged, now); err != nil {
			return err
		}

		if err := tx.repos.Assignments.Update(ctx, a); err != nil {
			return fmt.Errorf("save assignment %s: %w", a.ID, err)
		}

		after := a.Contribution()
		if err := tx.reconcile(ctx, before, after); err != nil {
			return err
		}

		switch {
		case wasCompleted && !a.IsCompleted():
			tx.emit(shared.NewAssignmentLifecycleEvent(shared.EventAssignmentReopened, a.ID, a.MemberID, a.BookID))
		case !wasCompleted && a.IsCompleted():
			c, _ := a.Completion()
			tx.emit(shared.NewAssignmentCompletedEvent(a.ID, a.MemberID, a.BookID, c.ReturnedDate, c.LateDays, c.Scores.Total()))
		}

		if a.IsCompleted() {
			adv, err := tx.maybeAdvance(ctx, a.MemberID)
			if err != nil {
				return err
			}
			result.Advancement = adv
		}

		result.Assignment = a
		result.Before = before
		result.After = after
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update_assignment: %w", err)
	}
	result.Events = events

	h.env.log(ctx).Info("assignment updated",
		logger.AssignmentID(result.Assignment.ID),
		logger.MemberID(result.Assignment.MemberID),
		zap.Int("contribution_before", result.Before.Total),
		zap.Int("contribution_after", result.After.Total),
	)
	return result, nil
}

// transition applies the state change requested by cmd. stored is the
// unsettled return of a pending row, if any.
func (h *UpdateAssignmentHandler) transition(a *assignment.Assignment, b *book.Book, cmd UpdateAssignmentCommand, stored *assignment.Unsettled, wasCompleted, bookChanged bool, now time.Time) error {
	rules := h.env.Rules

	switch {
	case cmd.ClearReturned:
		if wasCompleted {
			a.Reopen(now)
		}
		return nil

	case !wasCompleted:
		settlement := assignment.Settlement{Quiz: cmd.QuizScore}
		switch {
		case cmd.ReturnedDate != nil:
			settlement.Returned = *cmd.ReturnedDate
		case stored != nil:
			settlement.Returned = *stored.ReturnedDate
		default:
			if cmd.QuizScore != nil {
				return invalid("UpdateAssignment", "quiz_score requires returned_date")
			}
			return nil
		}
		// Imported scores belong to the stored book.
		if stored != nil && !bookChanged {
			settlement.Seed = stored.Seed
		}
		_, err := rules.Settle(a, b, settlement, now)
		return err

	case bookChanged:
		// A different title means different bases: settle afresh against it.
		returned := *a.ReturnedDate()
		if cmd.ReturnedDate != nil {
			returned = *cmd.ReturnedDate
		}
		_, err := rules.Settle(a, b, assignment.Settlement{Returned: returned, Quiz: cmd.QuizScore}, now)
		return err

	default:
		returned := *a.ReturnedDate()
		if cmd.ReturnedDate != nil {
			returned = *cmd.ReturnedDate
		}
		_, err := rules.Reschedule(a, returned, cmd.QuizScore, now)
		return err
	}
}
