package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOGUE COMMANDS
// Periods, stages and books. Only book score edits touch the ledger; they go
// through the same rescale path as ChangeBookScore.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogHandler handles period, stage and book management.
type CatalogHandler struct {
	env Env
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(env Env) *CatalogHandler {
	return &CatalogHandler{env: env.withDefaults()}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periods
// ──────────────────────────────────────────────────────────────────────────────

// CreatePeriodCommand contains a new reading period.
type CreatePeriodCommand struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time

	// Activate deactivates every other period.
	Activate bool
}

// CreatePeriod stores a period.
func (h *CatalogHandler) CreatePeriod(ctx context.Context, cmd CreatePeriodCommand) (*period.ReadingPeriod, error) {
	p, err := period.NewReadingPeriod(h.env.NewID(), cmd.Name, strings.TrimSpace(cmd.Description),
		cmd.StartDate, cmd.EndDate, cmd.Activate, h.env.Now())
	if err != nil {
		return nil, fmt.Errorf("create_period: %w", err)
	}

	_, err = h.env.run(ctx, "create_period", func(ctx context.Context, tx *txn) error {
		if err := tx.repos.Periods.Create(ctx, p); err != nil {
			return err
		}
		if p.IsActive {
			return tx.repos.Periods.DeactivateAllExcept(ctx, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create_period: %w", err)
	}

	h.env.log(ctx).Info("period created", zap.String("period_id", p.ID), zap.Bool("active", p.IsActive))
	return p, nil
}

// ActivatePeriod makes the period the only active one.
func (h *CatalogHandler) ActivatePeriod(ctx context.Context, periodID string) (*period.ReadingPeriod, error) {
	var p *period.ReadingPeriod
	_, err := h.env.run(ctx, "activate_period", func(ctx context.Context, tx *txn) error {
		var err error
		p, err = tx.repos.Periods.GetByID(ctx, periodID)
		if err != nil {
			return err
		}
		p.IsActive = true
		p.UpdatedAt = h.env.Now()
		if err := tx.repos.Periods.Update(ctx, p); err != nil {
			return err
		}
		return tx.repos.Periods.DeactivateAllExcept(ctx, p.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("activate_period: %w", err)
	}
	return p, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Stages
// ──────────────────────────────────────────────────────────────────────────────

// CreateStageCommand contains a new stage.
type CreateStageCommand struct {
	PeriodID    string
	StageNumber int
	Name        string
	Description string

	// Order defaults to StageNumber when zero.
	Order int
}

// CreateStage stores a stage in an existing period.
func (h *CatalogHandler) CreateStage(ctx context.Context, cmd CreateStageCommand) (*period.Stage, error) {
	order := cmd.Order
	if order == 0 {
		order = cmd.StageNumber
	}
	s, err := period.NewStage(h.env.NewID(), cmd.PeriodID, cmd.StageNumber, cmd.Name,
		strings.TrimSpace(cmd.Description), order, h.env.Now())
	if err != nil {
		return nil, fmt.Errorf("create_stage: %w", err)
	}

	_, err = h.env.run(ctx, "create_stage", func(ctx context.Context, tx *txn) error {
		if _, err := tx.repos.Periods.GetByID(ctx, s.PeriodID); err != nil {
			return err
		}
		return tx.repos.Stages.Create(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("create_stage: %w", err)
	}
	return s, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Books
// ──────────────────────────────────────────────────────────────────────────────

// CreateBookCommand contains a new book.
type CreateBookCommand struct {
	StageID      string
	Title        string
	Author       string
	Description  string
	ReadingScore int
	QuizScore    int
	ReadingDays  int
	PageCount    int
	StockCount   int
}

// CreateBook stores a book in an existing stage.
func (h *CatalogHandler) CreateBook(ctx context.Context, cmd CreateBookCommand) (*book.Book, error) {
	now := h.env.Now()
	b := &book.Book{
		ID:           h.env.NewID(),
		StageID:      cmd.StageID,
		Title:        cmd.Title,
		Author:       strings.TrimSpace(cmd.Author),
		Description:  strings.TrimSpace(cmd.Description),
		ReadingScore: cmd.ReadingScore,
		QuizScore:    cmd.QuizScore,
		ReadingDays:  cmd.ReadingDays,
		PageCount:    cmd.PageCount,
		StockCount:   cmd.StockCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.ApplyDefaults(h.env.DefaultReadingDays)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("create_book: %w", err)
	}

	_, err := h.env.run(ctx, "create_book", func(ctx context.Context, tx *txn) error {
		if _, err := tx.repos.Stages.GetByID(ctx, b.StageID); err != nil {
			return err
		}
		return tx.repos.Books.Create(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("create_book: %w", err)
	}

	h.env.log(ctx).Info("book created", logger.BookID(b.ID), logger.StageID(b.StageID))
	return b, nil
}

// UpdateBookCommand contains the book fields to change. Nil means unchanged.
type UpdateBookCommand struct {
	BookID       string
	StageID      *string
	Title        *string
	Author       *string
	Description  *string
	ReadingScore *int
	QuizScore    *int
	ReadingDays  *int
	PageCount    *int
	StockCount   *int
}

// UpdateBookResult contains the saved book and, when the bases changed, the
// number of rescaled assignments.
type UpdateBookResult struct {
	Book     *book.Book
	Rescaled int
	Events   []shared.Event
}

// UpdateBook edits a book. Changed scores are propagated to every completed
// assignment of the book in the same unit of work.
func (h *CatalogHandler) UpdateBook(ctx context.Context, cmd UpdateBookCommand) (*UpdateBookResult, error) {
	if cmd.BookID == "" {
		return nil, fmt.Errorf("update_book: %w", invalid("UpdateBook", "book_id is required"))
	}

	result := &UpdateBookResult{}
	events, err := h.env.run(ctx, "rescale", func(ctx context.Context, tx *txn) error {
		b, err := tx.repos.Books.GetByID(ctx, cmd.BookID)
		if err != nil {
			return err
		}
		oldReading, oldQuiz := b.ReadingScore, b.QuizScore

		if cmd.StageID != nil && *cmd.StageID != b.StageID {
			if _, err := tx.repos.Stages.GetByID(ctx, *cmd.StageID); err != nil {
				return err
			}
			b.StageID = *cmd.StageID
		}
		setString(&b.Title, cmd.Title)
		setString(&b.Author, cmd.Author)
		setString(&b.Description, cmd.Description)
		setInt(&b.ReadingScore, cmd.ReadingScore)
		setInt(&b.QuizScore, cmd.QuizScore)
		setInt(&b.ReadingDays, cmd.ReadingDays)
		setInt(&b.PageCount, cmd.PageCount)
		setInt(&b.StockCount, cmd.StockCount)
		b.ApplyDefaults(h.env.DefaultReadingDays)
		if err := b.Validate(); err != nil {
			return err
		}

		b.UpdatedAt = h.env.Now()
		if err := tx.repos.Books.Update(ctx, b); err != nil {
			return fmt.Errorf("save book %s: %w", b.ID, err)
		}

		if b.ReadingScore != oldReading || b.QuizScore != oldQuiz {
			n, _, err := tx.rescaleBook(ctx, b)
			if err != nil {
				return err
			}
			result.Rescaled = n
		}
		result.Book = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update_book: %w", err)
	}
	result.Events = events
	return result, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
