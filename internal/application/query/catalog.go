package query

import (
	"context"
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/assignment"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/uow"
)

var errInvalidFilter = shared.NewDomainError("query", "Filter", shared.ErrInvalidInput, "invalid filter")

// ══════════════════════════════════════════════════════════════════════════════
// CATALOGUE QUERIES
// Plain listings of periods, stages, books, members and assignments.
// ══════════════════════════════════════════════════════════════════════════════

// Catalog serves the simple read endpoints.
type Catalog struct {
	repos uow.Repositories
	rules assignment.Rules
	now   func() time.Time
}

// NewCatalog creates a new Catalog.
func NewCatalog(repos uow.Repositories, rules assignment.Rules, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	return &Catalog{repos: repos, rules: rules, now: now}
}

// ListPeriods returns every period, newest first.
func (c *Catalog) ListPeriods(ctx context.Context) ([]PeriodDTO, error) {
	list, err := c.repos.Periods.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_periods: %w", err)
	}
	out := make([]PeriodDTO, 0, len(list))
	for _, p := range list {
		out = append(out, NewPeriodDTO(p, c.rules.Location))
	}
	return out, nil
}

// ListStages returns the stages of a period in progression order.
func (c *Catalog) ListStages(ctx context.Context, periodID string) ([]StageDTO, error) {
	if _, err := c.repos.Periods.GetByID(ctx, periodID); err != nil {
		return nil, fmt.Errorf("list_stages: %w", err)
	}
	list, err := c.repos.Stages.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list_stages: %w", err)
	}
	out := make([]StageDTO, 0, len(list))
	for _, s := range list {
		out = append(out, NewStageDTO(s))
	}
	return out, nil
}

// ListBooks returns the books of a stage, or every book when stageID is empty.
func (c *Catalog) ListBooks(ctx context.Context, stageID string) ([]BookDTO, error) {
	list, err := c.repos.Books.List(ctx)
	if stageID != "" {
		list, err = c.repos.Books.ListByStage(ctx, stageID)
	}
	if err != nil {
		return nil, fmt.Errorf("list_books: %w", err)
	}
	out := make([]BookDTO, 0, len(list))
	for _, b := range list {
		out = append(out, NewBookDTO(b))
	}
	return out, nil
}

// GetBook returns a book with its free copies.
func (c *Catalog) GetBook(ctx context.Context, id string) (*BookDTO, error) {
	b, err := c.repos.Books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_book: %w", err)
	}
	pending, err := c.repos.Assignments.CountPendingByBook(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("get_book: %w", err)
	}
	dto := NewBookDTO(b).WithAvailable(b.Available(pending))
	return &dto, nil
}

// ListMembers returns members matching the filter.
func (c *Catalog) ListMembers(ctx context.Context, filter member.ListFilter) ([]MemberDTO, error) {
	list, err := c.repos.Members.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list_members: %w", err)
	}
	out := make([]MemberDTO, 0, len(list))
	for _, m := range list {
		out = append(out, NewMemberDTO(m))
	}
	return out, nil
}

// GetMember returns one member.
func (c *Catalog) GetMember(ctx context.Context, id string) (*MemberDTO, error) {
	m, err := c.repos.Members.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_member: %w", err)
	}
	dto := NewMemberDTO(m)
	return &dto, nil
}

// ListAssignments returns assignments matching the filter, newest first.
func (c *Catalog) ListAssignments(ctx context.Context, filter assignment.Filter) ([]AssignmentDTO, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("list_assignments: unknown status %q: %w", filter.Status, errInvalidFilter)
	}
	list, err := c.repos.Assignments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list_assignments: %w", err)
	}
	out := make([]AssignmentDTO, 0, len(list))
	for _, a := range list {
		out = append(out, NewAssignmentDTO(a))
	}
	return out, nil
}

// GetAssignment returns one assignment with its penalty: the frozen one when
// completed, the one it would get if returned now otherwise.
func (c *Catalog) GetAssignment(ctx context.Context, id string) (*AssignmentDTO, error) {
	a, err := c.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_assignment: %w", err)
	}
	b, err := c.repos.Books.GetByID(ctx, a.BookID)
	if err != nil {
		return nil, fmt.Errorf("get_assignment: %w", err)
	}

	dto := NewAssignmentDTO(a)
	penalty := c.rules.PenaltyAmount(a, b, c.now())
	dto.Penalty = &penalty
	return &dto, nil
}
