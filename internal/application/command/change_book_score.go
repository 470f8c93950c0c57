package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE BOOK SCORE COMMAND
// Changes a book's bases and moves every completed assignment of the book
// onto them. Each assignment keeps its absolute reading penalty and its quiz
// proportion; members and weekly buckets receive the difference.
// ══════════════════════════════════════════════════════════════════════════════

// ChangeBookScoreCommand contains the new bases.
type ChangeBookScoreCommand struct {
	BookID       string
	ReadingScore int
	QuizScore    int
}

// Validate validates the command.
func (c ChangeBookScoreCommand) Validate() error {
	if c.BookID == "" {
		return invalid("ChangeBookScore", "book_id is required")
	}
	if c.ReadingScore < 0 || c.QuizScore < 0 {
		return shared.ErrInvalidBookScore
	}
	return nil
}

// ChangeBookScoreResult reports the rescaled assignments.
type ChangeBookScoreResult struct {
	Book *book.Book

	// Rescaled is the number of completed assignments moved to the new bases.
	Rescaled int

	// Delta is the net ledger change over all members.
	Delta int

	Events []shared.Event
}

// ChangeBookScoreHandler handles the ChangeBookScoreCommand.
type ChangeBookScoreHandler struct {
	env Env
}

// NewChangeBookScoreHandler creates a new ChangeBookScoreHandler.
func NewChangeBookScoreHandler(env Env) *ChangeBookScoreHandler {
	return &ChangeBookScoreHandler{env: env.withDefaults()}
}

// Handle executes the change book score command.
func (h *ChangeBookScoreHandler) Handle(ctx context.Context, cmd ChangeBookScoreCommand) (*ChangeBookScoreResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("change_book_score: %w", err)
	}

	result := &ChangeBookScoreResult{}
	events, err := h.env.run(ctx, "rescale", func(ctx context.Context, tx *txn) error {
		b, err := tx.repos.Books.GetByID(ctx, cmd.BookID)
		if err != nil {
			return err
		}
		b.ReadingScore = cmd.ReadingScore
		b.QuizScore = cmd.QuizScore
		b.UpdatedAt = h.env.Now()
		if err := tx.repos.Books.Update(ctx, b); err != nil {
			return fmt.Errorf("save book %s: %w", b.ID, err)
		}

		n, delta, err := tx.rescaleBook(ctx, b)
		if err != nil {
			return err
		}
		result.Book = b
		result.Rescaled = n
		result.Delta = delta
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("change_book_score: %w", err)
	}
	result.Events = events

	h.env.log(ctx).Info("book scores changed",
		logger.BookID(result.Book.ID),
		zap.Int("reading_score", result.Book.ReadingScore),
		zap.Int("quiz_score", result.Book.QuizScore),
		zap.Int("rescaled", result.Rescaled),
		logger.ScoreDelta(result.Delta),
	)
	return result, nil
}

// rescaleBook moves every completed assignment of b onto its current bases
// and reconciles each one. It returns the count and the net delta.
func (t *txn) rescaleBook(ctx context.Context, b *book.Book) (int, int, error) {
	completed, err := t.repos.Assignments.ListCompletedByBook(ctx, b.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list completed assignments: %w", err)
	}

	now := t.env.Now()
	total := 0
	for _, a := range completed {
		c, ok := a.Completion()
		if !ok {
			continue
		}
		before := a.Contribution()

		c.Scores = assignment.Rescale(c.Scores, b.ReadingScore, b.QuizScore)
		a.State = c
		a.UpdatedAt = now
		if err := t.repos.Assignments.Update(ctx, a); err != nil {
			return 0, 0, fmt.Errorf("save assignment %s: %w", a.ID, err)
		}

		after := a.Contribution()
		if err := t.reconcile(ctx, before, after); err != nil {
			return 0, 0, err
		}
		total += after.Total - before.Total
	}

	t.emit(shared.NewBookScoresChangedEvent(b.ID, b.ReadingScore, b.QuizScore, len(completed)))
	return len(completed), total, nil
}
