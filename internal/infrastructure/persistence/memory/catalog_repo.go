package memory

import (
	"context"
	"sort"

	"github.com/mahdygh/bookclub/internal/domain/book"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Periods
// ─────────────────────────────────────────────────────────────────────────────

// PeriodRepository implements period.Repository.
type PeriodRepository struct {
	h *handle
}

func (r *PeriodRepository) Create(_ context.Context, p *period.ReadingPeriod) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.periods[p.ID]; ok {
		return shared.NewDomainError("period", "Create", shared.ErrAlreadyExists, "period already exists")
	}
	st.periods[p.ID] = *p
	return nil
}

func (r *PeriodRepository) GetByID(_ context.Context, id string) (*period.ReadingPeriod, error) {
	st, done := r.h.read()
	defer done()

	p, ok := st.periods[id]
	if !ok {
		return nil, shared.ErrPeriodNotFound
	}
	return &p, nil
}

func (r *PeriodRepository) GetActive(_ context.Context) (*period.ReadingPeriod, error) {
	st, done := r.h.read()
	defer done()

	for _, p := range st.periods {
		if p.IsActive {
			return &p, nil
		}
	}
	return nil, shared.ErrPeriodNotFound
}

func (r *PeriodRepository) List(_ context.Context) ([]*period.ReadingPeriod, error) {
	st, done := r.h.read()
	defer done()

	out := make([]*period.ReadingPeriod, 0, len(st.periods))
	for _, p := range st.periods {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PeriodRepository) Update(_ context.Context, p *period.ReadingPeriod) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.periods[p.ID]; !ok {
		return shared.ErrPeriodNotFound
	}
	st.periods[p.ID] = *p
	return nil
}

func (r *PeriodRepository) DeactivateAllExcept(_ context.Context, id string) error {
	st, done := r.h.write()
	defer done()

	for k, p := range st.periods {
		if k != id && p.IsActive {
			p.IsActive = false
			p.UpdatedAt = r.h.now()
			st.periods[k] = p
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Stages
// ─────────────────────────────────────────────────────────────────────────────

// StageRepository implements period.StageRepository.
type StageRepository struct {
	h *handle
}

func (r *StageRepository) Create(_ context.Context, s *period.Stage) error {
	st, done := r.h.write()
	defer done()

	for _, existing := range st.stages {
		if existing.PeriodID == s.PeriodID && existing.StageNumber == s.StageNumber {
			return shared.ErrStageExists
		}
	}
	st.stages[s.ID] = *s
	return nil
}

func (r *StageRepository) GetByID(_ context.Context, id string) (*period.Stage, error) {
	st, done := r.h.read()
	defer done()

	s, ok := st.stages[id]
	if !ok {
		return nil, shared.ErrStageNotFound
	}
	return &s, nil
}

func (r *StageRepository) ListByPeriod(_ context.Context, periodID string) ([]*period.Stage, error) {
	st, done := r.h.read()
	defer done()

	var out []*period.Stage
	for _, s := range st.stages {
		if s.PeriodID == periodID {
			out = append(out, &s)
		}
	}
	period.SortStages(out)
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Books
// ─────────────────────────────────────────────────────────────────────────────

// BookRepository implements book.Repository.
type BookRepository struct {
	h *handle
}

func (r *BookRepository) Create(_ context.Context, b *book.Book) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.books[b.ID]; ok {
		return shared.NewDomainError("book", "Create", shared.ErrAlreadyExists, "book already exists")
	}
	st.books[b.ID] = *b
	return nil
}

func (r *BookRepository) GetByID(_ context.Context, id string) (*book.Book, error) {
	st, done := r.h.read()
	defer done()

	b, ok := st.books[id]
	if !ok {
		return nil, shared.ErrBookNotFound
	}
	return &b, nil
}

func (r *BookRepository) Update(_ context.Context, b *book.Book) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.books[b.ID]; !ok {
		return shared.ErrBookNotFound
	}
	st.books[b.ID] = *b
	return nil
}

func (r *BookRepository) ListByStage(_ context.Context, stageID string) ([]*book.Book, error) {
	st, done := r.h.read()
	defer done()

	var out []*book.Book
	for _, b := range st.books {
		if b.StageID == stageID {
			out = append(out, &b)
		}
	}
	sortBooks(out)
	return out, nil
}

func (r *BookRepository) List(_ context.Context) ([]*book.Book, error) {
	st, done := r.h.read()
	defer done()

	out := make([]*book.Book, 0, len(st.books))
	for _, b := range st.books {
		out = append(out, &b)
	}
	sortBooks(out)
	return out, nil
}

func sortBooks(books []*book.Book) {
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})
}
