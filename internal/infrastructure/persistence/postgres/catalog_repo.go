package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// PeriodRepository implements period.Repository for PostgreSQL.
type PeriodRepository struct {
	q Querier
}

const periodColumns = `id, name, description, is_active, start_date, end_date, created_at, updated_at`

func scanPeriod(row pgx.Row) (*period.ReadingPeriod, error) {
	var p period.ReadingPeriod
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a new period.
func (r *PeriodRepository) Create(ctx context.Context, p *period.ReadingPeriod) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO reading_periods (`+periodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Description, p.IsActive, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("period", "Create", shared.ErrAlreadyExists, "period already exists or another is active")
		}
		return fmt.Errorf("failed to create period: %w", err)
	}
	return nil
}

// GetByID returns a period by ID.
func (r *PeriodRepository) GetByID(ctx context.Context, id string) (*period.ReadingPeriod, error) {
	p, err := scanPeriod(r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM reading_periods WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	return p, nil
}

// GetActive returns the active period.
func (r *PeriodRepository) GetActive(ctx context.Context) (*period.ReadingPeriod, error) {
	p, err := scanPeriod(r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM reading_periods WHERE is_active LIMIT 1`))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to get active period: %w", err)
	}
	return p, nil
}

// List returns all periods, newest start date first.
func (r *PeriodRepository) List(ctx context.Context) ([]*period.ReadingPeriod, error) {
	rows, err := r.q.Query(ctx, `SELECT `+periodColumns+` FROM reading_periods ORDER BY start_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var out []*period.ReadingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update saves period fields.
func (r *PeriodRepository) Update(ctx context.Context, p *period.ReadingPeriod) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE reading_periods
		SET name = $2, description = $3, is_active = $4, start_date = $5, end_date = $6, updated_at = $7
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.IsActive, p.StartDate, p.EndDate, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPeriodNotFound
	}
	return nil
}

// DeactivateAllExcept clears is_active on every other period.
func (r *PeriodRepository) DeactivateAllExcept(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE reading_periods SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND id <> $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate periods: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StageRepository implements period.StageRepository for PostgreSQL.
type StageRepository struct {
	q Querier
}

const stageColumns = `id, period_id, stage_number, name, description, sort_order, created_at`

func scanStage(row pgx.Row) (*period.Stage, error) {
	var s period.Stage
	if err := row.Scan(&s.ID, &s.PeriodID, &s.StageNumber, &s.Name, &s.Description, &s.Order, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create stores a stage.
func (r *StageRepository) Create(ctx context.Context, s *period.Stage) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stages (`+stageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.PeriodID, s.StageNumber, s.Name, s.Description, s.Order, s.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStageExists
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrPeriodNotFound
		}
		return fmt.Errorf("failed to create stage: %w", err)
	}
	return nil
}

// GetByID returns a stage by ID.
func (r *StageRepository) GetByID(ctx context.Context, id string) (*period.Stage, error) {
	s, err := scanStage(r.q.QueryRow(ctx, `SELECT `+stageColumns+` FROM stages WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return s, nil
}

// ListByPeriod returns the stages of a period in progression order.
func (r *StageRepository) ListByPeriod(ctx context.Context, periodID string) ([]*period.Stage, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stageColumns+` FROM stages
		WHERE period_id = $1
		ORDER BY sort_order, stage_number
	`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var out []*period.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// BOOK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// BookRepository implements book.Repository for PostgreSQL.
type BookRepository struct {
	q Querier
}

const bookColumns = `id, stage_id, title, author, description, reading_score, quiz_score,
	reading_days, page_count, stock_count, created_at, updated_at`

func scanBook(row pgx.Row) (*book.Book, error) {
	var b book.Book
	err := row.Scan(
		&b.ID, &b.StageID, &b.Title, &b.Author, &b.Description, &b.ReadingScore, &b.QuizScore,
		&b.ReadingDays, &b.PageCount, &b.StockCount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) listBooks(ctx context.Context, where string, args ...interface{}) ([]*book.Book, error) {
	rows, err := r.q.Query(ctx, `SELECT `+bookColumns+` FROM books `+where+` ORDER BY title, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var out []*book.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Create stores a book.
func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.StageID, b.Title, b.Author, b.Description, b.ReadingScore, b.QuizScore,
		b.ReadingDays, b.PageCount, b.StockCount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStageNotFound
		}
		if IsUniqueViolation(err) {
			return shared.NewDomainError("book", "Create", shared.ErrAlreadyExists, "book already exists")
		}
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID returns a book by ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return b, nil
}

// Update saves book fields.
func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE books
		SET stage_id = $2, title = $3, author = $4, description = $5, reading_score = $6,
		    quiz_score = $7, reading_days = $8, page_count = $9, stock_count = $10, updated_at = $11
		WHERE id = $1
	`, b.ID, b.StageID, b.Title, b.Author, b.Description, b.ReadingScore,
		b.QuizScore, b.ReadingDays, b.PageCount, b.StockCount, b.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStageNotFound
		}
		return fmt.Errorf("failed to update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrBookNotFound
	}
	return nil
}

// ListByStage returns the books of a stage ordered by title.
func (r *BookRepository) ListByStage(ctx context.Context, stageID string) ([]*book.Book, error) {
	return r.listBooks(ctx, `WHERE stage_id = $1`, stageID)
}

// List returns every book ordered by title.
func (r *BookRepository) List(ctx context.Context) ([]*book.Book, error) {
	return r.listBooks(ctx, ``)
}

var (
	_ period.Repository      = (*PeriodRepository)(nil)
	_ period.StageRepository = (*StageRepository)(nil)
	_ book.Repository        = (*BookRepository)(nil)
)
