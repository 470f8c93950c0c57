package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NORMALIZE RETURNED COMMAND
// Heals stored rows whose completion flag disagrees with their returned date,
// as left behind by imports or manual edits. A row with a date is settled as
// if completed now for the first time; a row flagged completed without a date
// is demoted to pending. Each row is healed in its own unit of work, so one
// broken row never blocks the rest.
// ══════════════════════════════════════════════════════════════════════════════

// NormalizeReturnedCommand triggers one normalization pass.
type NormalizeReturnedCommand struct{}

// NormalizeFailure describes a row that could not be healed.
type NormalizeFailure struct {
	AssignmentID string
	Err          error
}

// NormalizeReturnedResult summarises a pass.
type NormalizeReturnedResult struct {
	// Scanned is the number of inconsistent rows found.
	Scanned int

	// Settled rows had a returned date and were completed.
	Settled int

	// Demoted rows had no returned date and were reset to pending.
	Demoted int

	// Skipped rows were already consistent when locked.
	Skipped int

	Failures []NormalizeFailure

	// Events contains domain events generated.
	Events []shared.Event
}

// Healed is the number of rows fixed by this pass.
func (r *NormalizeReturnedResult) Healed() int {
	return r.Settled + r.Demoted
}

// NormalizeReturnedHandler handles the NormalizeReturnedCommand.
type NormalizeReturnedHandler struct {
	env Env
}

// NewNormalizeReturnedHandler creates a new NormalizeReturnedHandler.
func NewNormalizeReturnedHandler(env Env) *NormalizeReturnedHandler {
	return &NormalizeReturnedHandler{env: env.withDefaults()}
}

// Handle runs the pass. It returns an error only when the scan itself fails;
// per-row failures are collected in the result.
func (h *NormalizeReturnedHandler) Handle(ctx context.Context, _ NormalizeReturnedCommand) (*NormalizeReturnedResult, error) {
	ids, err := h.env.UoW.Repositories().Assignments.ListUnsettledReturns(ctx)
	if err != nil {
		return nil, fmt.Errorf("normalize_returned: scan: %w", err)
	}

	result := &NormalizeReturnedResult{Scanned: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("normalize_returned: %w", err)
		}

		outcome, events, err := h.healOne(ctx, id)
		if err != nil {
			h.env.log(ctx).Warn("failed to normalize assignment",
				logger.AssignmentID(id),
				zap.Error(err),
			)
			result.Failures = append(result.Failures, NormalizeFailure{AssignmentID: id, Err: err})
			continue
		}

		switch outcome {
		case healSettled:
			result.Settled++
		case healDemoted:
			result.Demoted++
		default:
			result.Skipped++
		}
		result.Events = append(result.Events, events...)
	}

	summary := shared.NewReturnsNormalizedEvent(result.Scanned, result.Healed(), len(result.Failures))
	h.env.publish(ctx, []shared.Event{summary})
	result.Events = append(result.Events, summary)

	if result.Scanned > 0 {
		h.env.log(ctx).Info("returns normalized",
			zap.Int("scanned", result.Scanned),
			zap.Int("settled", result.Settled),
			zap.Int("demoted", result.Demoted),
			zap.Int("failed", len(result.Failures)),
		)
	}
	return result, nil
}

type healOutcome int

const (
	healSkipped healOutcome = iota
	healSettled
	healDemoted
)

func (h *NormalizeReturnedHandler) healOne(ctx context.Context, id string) (healOutcome, []shared.Event, error) {
	outcome := healSkipped
	events, err := h.env.run(ctx, "normalize", func(ctx context.Context, tx *txn) error {
		outcome = healSkipped

		u, err := tx.repos.Assignments.GetUnsettledForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return nil
		}
		a := u.Assignment

		if u.ReturnedDate == nil {
			// Flagged completed but never returned: nothing was booked for
			// it, so only the row changes.
			a.Reopen(h.env.Now())
			if err := tx.repos.Assignments.Update(ctx, a); err != nil {
				return fmt.Errorf("save assignment %s: %w", a.ID, err)
			}
			outcome = healDemoted
			return nil
		}

		b, err := tx.repos.Books.GetByID(ctx, a.BookID)
		if err != nil {
			return err
		}
		if _, err := tx.settle(ctx, a, b, assignment.Settlement{Returned: *u.ReturnedDate, Seed: u.Seed}); err != nil {
			return err
		}
		if _, err := tx.maybeAdvance(ctx, a.MemberID); err != nil {
			return err
		}
		outcome = healSettled
		return nil
	})
	return outcome, events, err
}
