package query

import (
	"context"
	"fmt"

	"github.com/mahdygh/bookclub/internal/domain/uow"
)

// GetAvailableBooksQuery selects the member.
type GetAvailableBooksQuery struct {
	MemberID string
}

// GetAvailableBooksHandler lists the current-stage books a member can borrow:
// not completed yet and with at least one free copy.
type GetAvailableBooksHandler struct {
	repos uow.Repositories
}

// NewGetAvailableBooksHandler creates a new GetAvailableBooksHandler.
func NewGetAvailableBooksHandler(repos uow.Repositories) *GetAvailableBooksHandler {
	return &GetAvailableBooksHandler{repos: repos}
}

// Handle executes the query.
func (h *GetAvailableBooksHandler) Handle(ctx context.Context, q GetAvailableBooksQuery) ([]BookDTO, error) {
	m, err := h.repos.Members.GetByID(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("get_available_books: %w", err)
	}
	out := []BookDTO{}
	if !m.HasStage() {
		return out, nil
	}

	books, err := h.repos.Books.ListByStage(ctx, m.CurrentStageID)
	if err != nil {
		return nil, fmt.Errorf("get_available_books: %w", err)
	}
	done, err := h.repos.Assignments.CompletedBookIDs(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("get_available_books: %w", err)
	}

	for _, b := range books {
		if done[b.ID] {
			continue
		}
		pending, err := h.repos.Assignments.CountPendingByBook(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("get_available_books: %w", err)
		}
		if n := b.Available(pending); n > 0 {
			out = append(out, NewBookDTO(b).WithAvailable(n))
		}
	}
	return out, nil
}
