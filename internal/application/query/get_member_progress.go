package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/uow"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MEMBER PROGRESS QUERY
// How far a member is through the current stage, and whether they may move on.
// ══════════════════════════════════════════════════════════════════════════════

// GetMemberProgressQuery selects the member.
type GetMemberProgressQuery struct {
	MemberID string
}

// MemberProgressDTO is the progress of a member in the current stage.
type MemberProgressDTO struct {
	MemberID           string    `json:"member_id"`
	CurrentStage       *StageDTO `json:"current_stage,omitempty"`
	TotalBooksInStage  int       `json:"total_books_in_stage"`
	CompletedBooks     int       `json:"completed_books_count"`
	ProgressPercentage float64   `json:"progress_percentage"`
	CanAdvance         bool      `json:"can_advance"`
	TotalScore         int       `json:"total_score"`
	Completed          []BookDTO `json:"completed_books"`
	Remaining          []BookDTO `json:"remaining_books"`
}

// GetMemberProgressHandler handles GetMemberProgressQuery.
type GetMemberProgressHandler struct {
	repos uow.Repositories
}

// NewGetMemberProgressHandler creates a new GetMemberProgressHandler.
func NewGetMemberProgressHandler(repos uow.Repositories) *GetMemberProgressHandler {
	return &GetMemberProgressHandler{repos: repos}
}

// Handle executes the query. A member without a stage has zero progress.
func (h *GetMemberProgressHandler) Handle(ctx context.Context, q GetMemberProgressQuery) (*MemberProgressDTO, error) {
	m, err := h.repos.Members.GetByID(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("get_member_progress: %w", err)
	}

	dto := &MemberProgressDTO{
		MemberID:   m.ID,
		TotalScore: m.TotalScore,
		Completed:  []BookDTO{},
		Remaining:  []BookDTO{},
	}
	if !m.HasStage() {
		return dto, nil
	}

	stage, err := h.repos.Stages.GetByID(ctx, m.CurrentStageID)
	if err != nil {
		if errors.Is(err, shared.ErrStageNotFound) {
			return dto, nil
		}
		return nil, fmt.Errorf("get_member_progress: %w", err)
	}
	stageDTO := NewStageDTO(stage)
	dto.CurrentStage = &stageDTO

	books, err := h.repos.Books.ListByStage(ctx, stage.ID)
	if err != nil {
		return nil, fmt.Errorf("get_member_progress: list books: %w", err)
	}
	done, err := h.repos.Assignments.CompletedBookIDs(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("get_member_progress: completed books: %w", err)
	}

	p := member.EvaluateProgress(stage.ID, books, done)
	dto.TotalBooksInStage = p.TotalBooks
	dto.CompletedBooks = p.CompletedBooks
	dto.ProgressPercentage = p.Percentage()
	dto.CanAdvance = p.CanAdvance()
	for _, b := range p.Completed {
		dto.Completed = append(dto.Completed, NewBookDTO(b))
	}
	for _, b := range p.Remaining {
		dto.Remaining = append(dto.Remaining, NewBookDTO(b))
	}
	return dto, nil
}
