package command

import (
	"context"
	"fmt"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// AdvanceStageCommand asks to move a member to the next stage.
type AdvanceStageCommand struct {
	MemberID string
}

// AdvanceStageResult reports whether the member moved.
type AdvanceStageResult struct {
	Advanced    bool
	Advancement *Advancement
	Events      []shared.Event
}

// AdvanceStageHandler handles the AdvanceStageCommand.
type AdvanceStageHandler struct {
	env Env
}

// NewAdvanceStageHandler creates a new AdvanceStageHandler.
func NewAdvanceStageHandler(env Env) *AdvanceStageHandler {
	return &AdvanceStageHandler{env: env.withDefaults()}
}

// Handle moves the member when every book of the current stage is completed
// and a later stage exists. Otherwise it reports Advanced=false.
func (h *AdvanceStageHandler) Handle(ctx context.Context, cmd AdvanceStageCommand) (*AdvanceStageResult, error) {
	if cmd.MemberID == "" {
		return nil, fmt.Errorf("advance_stage: %w", invalid("AdvanceStage", "member_id is required"))
	}

	result := &AdvanceStageResult{}
	events, err := h.env.run(ctx, "advance", func(ctx context.Context, tx *txn) error {
		adv, err := tx.advance(ctx, cmd.MemberID)
		if err != nil {
			return err
		}
		result.Advancement = adv
		result.Advanced = adv != nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("advance_stage: %w", err)
	}
	result.Events = events
	return result, nil
}
