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
// COMPLETE ASSIGNMENT COMMAND
// Settles a pending loan: freezes the book bases, applies the late penalty and
// books the earned total on the ledger and in the week of the return.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteAssignmentCommand contains the data to complete an assignment.
type CompleteAssignmentCommand struct {
	AssignmentID string

	// ReturnedDate defaults to now when zero.
	ReturnedDate time.Time

	// QuizScore overrides the book's quiz base when set.
	QuizScore *int

	// Notes replaces the assignment notes when set.
	Notes *string
}

// Validate validates the command.
func (c CompleteAssignmentCommand) Validate() error {
	if c.AssignmentID == "" {
		return invalid("CompleteAssignment", "assignment_id is required")
	}
	if c.QuizScore != nil {
		return assignment.ValidateQuiz(*c.QuizScore)
	}
	return nil
}

// CompleteAssignmentResult contains the settled assignment.
type CompleteAssignmentResult struct {
	Assignment *assignment.Assignment
	Completion assignment.Completed

	// Advancement is set when the member moved to the next stage.
	Advancement *Advancement

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteAssignmentHandler handles the CompleteAssignmentCommand.
type CompleteAssignmentHandler struct {
	env Env
}

// NewCompleteAssignmentHandler creates a new CompleteAssignmentHandler.
func NewCompleteAssignmentHandler(env Env) *CompleteAssignmentHandler {
	return &CompleteAssignmentHandler{env: env.withDefaults()}
}

// Handle executes the complete assignment command.
func (h *CompleteAssignmentHandler) Handle(ctx context.Context, cmd CompleteAssignmentCommand) (*CompleteAssignmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_assignment: %w", err)
	}

	returned := cmd.ReturnedDate
	if returned.IsZero() {
		returned = h.env.Now()
	}

	result := &CompleteAssignmentResult{}
	events, err := h.env.run(ctx, "complete", func(ctx context.Context, tx *txn) error {
		a, err := tx.repos.Assignments.GetForUpdate(ctx, cmd.AssignmentID)
		if err != nil {
			return err
		}
		if a.IsCompleted() {
			return shared.ErrAlreadyCompleted
		}

		b, err := tx.repos.Books.GetByID(ctx, a.BookID)
		if err != nil {
			return err
		}

		if cmd.Notes != nil {
			a.Notes = strings.TrimSpace(*cmd.Notes)
		}

		c, err := tx.settle(ctx, a, b, assignment.Settlement{Returned: returned, Quiz: cmd.QuizScore})
		if err != nil {
			return err
		}

		adv, err := tx.maybeAdvance(ctx, a.MemberID)
		if err != nil {
			return err
		}

		result.Assignment = a
		result.Completion = c
		result.Advancement = adv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete_assignment: %w", err)
	}
	result.Events = events

	h.env.log(ctx).Info("assignment completed",
		logger.AssignmentID(result.Assignment.ID),
		logger.MemberID(result.Assignment.MemberID),
		zap.Int("late_days", result.Completion.LateDays),
		zap.Int("earned", result.Completion.Scores.Total()),
	)
	return result, nil
}
