package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// DeleteAssignmentCommand removes an assignment and reverses what it
// contributed.
type DeleteAssignmentCommand struct {
	AssignmentID string
}

// DeleteAssignmentResult reports the reversed contribution.
type DeleteAssignmentResult struct {
	Reversed assignment.Contribution
	Events   []shared.Event
}

// DeleteAssignmentHandler handles the DeleteAssignmentCommand.
type DeleteAssignmentHandler struct {
	env Env
}

// NewDeleteAssignmentHandler creates a new DeleteAssignmentHandler.
func NewDeleteAssignmentHandler(env Env) *DeleteAssignmentHandler {
	return &DeleteAssignmentHandler{env: env.withDefaults()}
}

// Handle deletes the row and books -total on the ledger and in the week of
// the return. Both clamp at zero.
func (h *DeleteAssignmentHandler) Handle(ctx context.Context, cmd DeleteAssignmentCommand) (*DeleteAssignmentResult, error) {
	if cmd.AssignmentID == "" {
		return nil, fmt.Errorf("delete_assignment: %w", invalid("DeleteAssignment", "assignment_id is required"))
	}

	result := &DeleteAssignmentResult{}
	events, err := h.env.run(ctx, "delete", func(ctx context.Context, tx *txn) error {
		a, err := tx.repos.Assignments.GetForUpdate(ctx, cmd.AssignmentID)
		if err != nil {
			return err
		}
		old := a.Contribution()

		if err := tx.repos.Assignments.Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("delete assignment %s: %w", a.ID, err)
		}
		if err := tx.reconcile(ctx, old, assignment.Contribution{MemberID: old.MemberID}); err != nil {
			return err
		}

		tx.emit(shared.NewAssignmentLifecycleEvent(shared.EventAssignmentDeleted, a.ID, a.MemberID, a.BookID))
		result.Reversed = old
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete_assignment: %w", err)
	}
	result.Events = events

	h.env.log(ctx).Info("assignment deleted",
		logger.AssignmentID(cmd.AssignmentID),
		logger.MemberID(result.Reversed.MemberID),
		zap.Int("reversed", result.Reversed.Total),
	)
	return result, nil
}
