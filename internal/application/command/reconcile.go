package command

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION SCOPE
// Shared building blocks of the score-changing commands. Every method runs on
// the repositories of the current unit of work.
// ══════════════════════════════════════════════════════════════════════════════

type txn struct {
	env    Env
	repos  uow.Repositories
	reason string
	events []shared.Event
}

func (t *txn) emit(events ...shared.Event) {
	t.events = append(t.events, events...)
}

// reconcile moves the ledger and the weekly buckets from the old contribution
// of an assignment to its new one.
//
// Ledger: the same member gets the net difference; a different member gets
// -old on the previous owner and +new on the current one.
// Weekly: the same member in the same week gets the net difference; anything
// else is reversed in the old week and applied in the new week.
func (t *txn) reconcile(ctx context.Context, old, cur assignment.Contribution) error {
	if old.MemberID == cur.MemberID {
		if err := t.ledger(ctx, cur.MemberID, cur.Total-old.Total); err != nil {
			return err
		}
	} else {
		if err := t.ledger(ctx, old.MemberID, -old.Total); err != nil {
			return err
		}
		if err := t.ledger(ctx, cur.MemberID, cur.Total); err != nil {
			return err
		}
	}

	loc := t.env.Rules.Location
	if old.MemberID == cur.MemberID && old.At != nil && cur.At != nil {
		oldWeek, _ := weekly.Week(*old.At, loc)
		curWeek, _ := weekly.Week(*cur.At, loc)
		if oldWeek.Equal(curWeek) {
			return t.week(ctx, cur, cur.Total-old.Total)
		}
	}
	if err := t.week(ctx, old, -old.Total); err != nil {
		return err
	}
	return t.week(ctx, cur, cur.Total)
}

func (t *txn) ledger(ctx context.Context, memberID string, delta int) error {
	mv, ok, err := member.ApplyDelta(ctx, t.repos.Members, memberID, delta)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	t.env.log(ctx).Debug("ledger moved",
		logger.MemberID(mv.MemberID),
		logger.ScoreDelta(mv.Delta),
		zap.Int("new_total", mv.NewTotal),
		logger.Operation(t.reason),
	)
	t.emit(shared.NewScoreChangedEvent(mv.MemberID, mv.Delta, mv.NewTotal, t.reason))
	return nil
}

func (t *txn) week(ctx context.Context, c assignment.Contribution, delta int) error {
	mv, ok, err := weekly.ApplyDelta(ctx, t.repos.Weekly, c.MemberID, delta, c.At, t.env.Rules.Location)
	if err != nil {
		return err
	}
	if ok {
		t.emit(shared.NewWeeklyScoreChangedEvent(mv.MemberID, mv.WeekStart, mv.Delta, mv.NewScore))
	}
	return nil
}

// settle completes a pending assignment and books its contribution.
func (t *txn) settle(ctx context.Context, a *assignment.Assignment, b *book.Book, s assignment.Settlement) (assignment.Completed, error) {
	old := a.Contribution()

	c, err := t.env.Rules.Settle(a, b, s, t.env.Now())
	if err != nil {
		return assignment.Completed{}, err
	}
	if err := t.repos.Assignments.Update(ctx, a); err != nil {
		return assignment.Completed{}, fmt.Errorf("save assignment %s: %w", a.ID, err)
	}
	if err := t.reconcile(ctx, old, a.Contribution()); err != nil {
		return assignment.Completed{}, err
	}

	t.emit(shared.NewAssignmentCompletedEvent(a.ID, a.MemberID, a.BookID, c.ReturnedDate, c.LateDays, c.Scores.Total()))
	return c, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Borrowing rules
// ──────────────────────────────────────────────────────────────────────────────

// checkLoan enforces who may borrow what. exceptID excludes the assignment
// being edited from the already-read check. needCopy requires a free copy.
func (t *txn) checkLoan(ctx context.Context, m *member.Member, b *book.Book, exceptID string, needCopy bool) error {
	if !m.IsActive {
		return shared.ErrMemberNotActive
	}
	if m.HasStage() && b.StageID != m.CurrentStageID {
		return shared.ErrBookNotInStage
	}

	done, err := t.repos.Assignments.List(ctx, assignment.Filter{
		MemberID: m.ID,
		BookID:   b.ID,
		Status:   assignment.StatusCompleted,
	})
	if err != nil {
		return fmt.Errorf("list completed assignments: %w", err)
	}
	for _, a := range done {
		if a.ID != exceptID {
			return shared.ErrBookAlreadyRead
		}
	}

	if needCopy {
		pending, err := t.repos.Assignments.CountPendingByBook(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("count pending loans: %w", err)
		}
		if b.Available(pending) == 0 {
			return shared.ErrNoCopiesAvailable
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Stage progression
// ──────────────────────────────────────────────────────────────────────────────

// Advancement describes a stage change.
type Advancement struct {
	MemberID    string
	FromStageID string
	ToStageID   string
	ToStageName string
}

// advance moves the member to the next stage of the period when every book of
// the current stage is completed. It returns nil when nothing moved.
func (t *txn) advance(ctx context.Context, memberID string) (*Advancement, error) {
	m, err := t.repos.Members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !m.HasStage() {
		return nil, nil
	}

	current, err := t.repos.Stages.GetByID(ctx, m.CurrentStageID)
	if err != nil {
		if errors.Is(err, shared.ErrStageNotFound) {
			return nil, nil
		}
		return nil, err
	}

	books, err := t.repos.Books.ListByStage(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("list stage books: %w", err)
	}
	completed, err := t.repos.Assignments.CompletedBookIDs(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("load completed books: %w", err)
	}
	if !member.EvaluateProgress(current.ID, books, completed).CanAdvance() {
		return nil, nil
	}

	stages, err := t.repos.Stages.ListByPeriod(ctx, current.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("list period stages: %w", err)
	}
	next := period.NextStage(stages, current)
	if next == nil {
		return nil, nil
	}

	m.MoveToStage(next.ID, t.env.Now())
	if err := t.repos.Members.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("save member %s: %w", m.ID, err)
	}

	t.env.log(ctx).Info("member advanced",
		logger.MemberID(m.ID),
		zap.String("from_stage_id", current.ID),
		zap.String("to_stage_id", next.ID),
	)
	t.emit(shared.NewStageAdvancedEvent(m.ID, current.ID, next.ID, next.Name))

	return &Advancement{
		MemberID:    m.ID,
		FromStageID: current.ID,
		ToStageID:   next.ID,
		ToStageName: next.Name,
	}, nil
}

// maybeAdvance runs advance when automatic advancement is enabled.
func (t *txn) maybeAdvance(ctx context.Context, memberID string) (*Advancement, error) {
	if !t.env.autoAdvance() {
		return nil, nil
	}
	return t.advance(ctx, memberID)
}
