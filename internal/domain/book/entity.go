// Package book holds the catalogue entry a member borrows and is scored on.
package book

import (
	"context"
	"strings"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// Defaults applied when a book is created without them.
const (
	DefaultReadingDays = 3
	DefaultStockCount  = 1
)

// Book belongs to one stage. ReadingScore and QuizScore are the current bases;
// completed assignments freeze their own copy at return time.
type Book struct {
	ID           string
	StageID      string
	Title        string
	Author       string
	Description  string
	ReadingScore int
	QuizScore    int
	ReadingDays  int
	PageCount    int
	StockCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TotalScore is the maximum a member can earn from this book.
func (b *Book) TotalScore() int {
	return b.ReadingScore + b.QuizScore
}

// ApplyDefaults fills unset reading days and stock.
func (b *Book) ApplyDefaults(readingDays int) {
	if readingDays <= 0 {
		readingDays = DefaultReadingDays
	}
	if b.ReadingDays <= 0 {
		b.ReadingDays = readingDays
	}
	if b.StockCount <= 0 {
		b.StockCount = DefaultStockCount
	}
}

// Validate checks the book invariants.
func (b *Book) Validate() error {
	b.Title = strings.TrimSpace(b.Title)
	if b.ID == "" {
		return shared.NewDomainError("book", "Validate", shared.ErrInvalidID, "book id is required")
	}
	if b.StageID == "" {
		return shared.NewDomainError("book", "Validate", shared.ErrInvalidID, "stage id is required")
	}
	if b.Title == "" {
		return shared.NewDomainError("book", "Validate", shared.ErrEmptyValue, "title is required")
	}
	if b.ReadingScore < 0 || b.QuizScore < 0 {
		return shared.ErrInvalidBookScore
	}
	if b.PageCount < 0 || b.ReadingDays < 0 || b.StockCount < 0 {
		return shared.NewDomainError("book", "Validate", shared.ErrNegativeValue, "counts must not be negative")
	}
	return nil
}

// Available returns the copies left when pending loans are out.
func (b *Book) Available(pending int) int {
	if n := b.StockCount - pending; n > 0 {
		return n
	}
	return 0
}

// Repository persists books.
type Repository interface {
	Create(ctx context.Context, b *Book) error

	// GetByID returns ErrBookNotFound when the book does not exist.
	GetByID(ctx context.Context, id string) (*Book, error)

	Update(ctx context.Context, b *Book) error

	// ListByStage returns the books of a stage ordered by title.
	ListByStage(ctx context.Context, stageID string) ([]*Book, error)

	// List returns every book ordered by title.
	List(ctx context.Context) ([]*Book, error)
}
