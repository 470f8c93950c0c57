package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ASSIGNMENT COMMAND
// Lends a book to a member. A returned date on creation records a loan that
// already came back and settles it in the same unit of work.
// ══════════════════════════════════════════════════════════════════════════════

// CreateAssignmentCommand contains the data to create an assignment.
type CreateAssignmentCommand struct {
	MemberID string
	BookID   string

	// AssignedDate defaults to now when zero.
	AssignedDate time.Time

	// DueDate defaults to assigned + the book's reading days.
	DueDate time.Time

	// ReturnedDate completes the assignment immediately when set.
	ReturnedDate *time.Time
	QuizScore    *int

	PagesRead int
	Notes     string
}

// Validate validates the command.
func (c CreateAssignmentCommand) Validate() error {
	if c.MemberID == "" {
		return invalid("CreateAssignment", "member_id is required")
	}
	if c.BookID == "" {
		return invalid("CreateAssignment", "book_id is required")
	}
	if c.PagesRead < 0 {
		return invalid("CreateAssignment", "pages_read must not be negative")
	}
	if c.QuizScore != nil {
		if c.ReturnedDate == nil {
			return invalid("CreateAssignment", "quiz_score requires returned_date")
		}
		return assignment.ValidateQuiz(*c.QuizScore)
	}
	return nil
}

// CreateAssignmentResult contains the created assignment.
type CreateAssignmentResult struct {
	Assignment  *assignment.Assignment
	Advancement *Advancement

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateAssignmentHandler handles the CreateAssignmentCommand.
type CreateAssignmentHandler struct {
	env Env
}

// NewCreateAssignmentHandler creates a new CreateAssignmentHandler.
func NewCreateAssignmentHandler(env Env) *CreateAssignmentHandler {
	return &CreateAssignmentHandler{env: env.withDefaults()}
}

// Handle executes the create assignment command.
func (h *CreateAssignmentHandler) Handle(ctx context.Context, cmd CreateAssignmentCommand) (*CreateAssignmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_assignment: %w", err)
	}

	now := h.env.Now()
	assigned := cmd.AssignedDate
	if assigned.IsZero() {
		assigned = now
	}

	result := &CreateAssignmentResult{}
	events, err := h.env.run(ctx, "create", func(ctx context.Context, tx *txn) error {
		m, err := tx.repos.Members.GetByID(ctx, cmd.MemberID)
		if err != nil {
			return err
		}
		b, err := tx.repos.Books.GetByID(ctx, cmd.BookID)
		if err != nil {
			return err
		}
		if err := tx.checkLoan(ctx, m, b, "", cmd.ReturnedDate == nil); err != nil {
			return err
		}

		due := cmd.DueDate
		if due.IsZero() {
			due = h.env.Rules.DueDate(assigned, b.ReadingDays)
		}

		a, err := assignment.New(h.env.NewID(), m.ID, b.ID, assigned, due, strings.TrimSpace(cmd.Notes), now)
		if err != nil {
			return err
		}
		a.PagesRead = cmd.PagesRead

		if err := tx.repos.Assignments.Create(ctx, a); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
		tx.emit(shared.NewAssignmentLifecycleEvent(shared.EventAssignmentCreated, a.ID, a.MemberID, a.BookID))

		if cmd.ReturnedDate != nil {
			if _, err := tx.settle(ctx, a, b, assignment.Settlement{Returned: *cmd.ReturnedDate, Quiz: cmd.QuizScore}); err != nil {
				return err
			}
			adv, err := tx.maybeAdvance(ctx, a.MemberID)
			if err != nil {
				return err
			}
			result.Advancement = adv
		}

		result.Assignment = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create_assignment: %w", err)
	}
	result.Events = events

	h.env.log(ctx).Info("assignment created",
		logger.AssignmentID(result.Assignment.ID),
		logger.MemberID(result.Assignment.MemberID),
		logger.BookID(result.Assignment.BookID),
		zap.String("status", string(result.Assignment.Status())),
	)
	return result, nil
}
