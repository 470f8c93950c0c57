// Package period models reading periods and the ordered stages inside them.
// Members progress through the stages of the active period one at a time.
package period

import (
	"sort"
	"strings"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// READING PERIOD
// ══════════════════════════════════════════════════════════════════════════════

// ReadingPeriod is a bounded stretch of the club calendar. At most one period
// is active at a time.
type ReadingPeriod struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	StartDate   time.Time
	EndDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReadingPeriod creates a validated period.
func NewReadingPeriod(id, name, description string, start, end time.Time, active bool, now time.Time) (*ReadingPeriod, error) {
	p := &ReadingPeriod{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: description,
		IsActive:    active,
		StartDate:   start,
		EndDate:     end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the period invariants.
func (p *ReadingPeriod) Validate() error {
	if p.ID == "" {
		return shared.NewDomainError("period", "Validate", shared.ErrInvalidID, "period id is required")
	}
	if p.Name == "" {
		return shared.NewDomainError("period", "Validate", shared.ErrEmptyValue, "period name is required")
	}
	if !p.StartDate.Before(p.EndDate) {
		return shared.ErrInvalidPeriodSpan
	}
	return nil
}

// Contains reports whether t falls inside the period (inclusive).
func (p *ReadingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE
// ══════════════════════════════════════════════════════════════════════════════

// Stage is one step of a period. Stage numbers are unique per period and
// Order decides the progression sequence.
type Stage struct {
	ID          string
	PeriodID    string
	StageNumber int
	Name        string
	Description string
	Order       int
	CreatedAt   time.Time
}

// NewStage creates a validated stage.
func NewStage(id, periodID string, number int, name, description string, order int, now time.Time) (*Stage, error) {
	s := &Stage{
		ID:          id,
		PeriodID:    periodID,
		StageNumber: number,
		Name:        strings.TrimSpace(name),
		Description: description,
		Order:       order,
		CreatedAt:   now,
	}
	if s.PeriodID == "" {
		return nil, shared.NewDomainError("period", "CreateStage", shared.ErrInvalidID, "period id is required")
	}
	if s.StageNumber <= 0 {
		return nil, shared.NewDomainError("period", "CreateStage", shared.ErrValueOutOfRange, "stage number must be positive")
	}
	if s.Name == "" {
		return nil, shared.NewDomainError("period", "CreateStage", shared.ErrEmptyValue, "stage name is required")
	}
	return s, nil
}

// SortStages orders stages by Order, then StageNumber.
func SortStages(stages []*Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Order != stages[j].Order {
			return stages[i].Order < stages[j].Order
		}
		return stages[i].StageNumber < stages[j].StageNumber
	})
}

// NextStage returns the stage of the same period with the smallest Order
// strictly greater than current's, or nil.
func NextStage(stages []*Stage, current *Stage) *Stage {
	if current == nil {
		return nil
	}
	var next *Stage
	for _, s := range stages {
		if s.PeriodID != current.PeriodID || s.Order <= current.Order {
			continue
		}
		if next == nil || s.Order < next.Order ||
			(s.Order == next.Order && s.StageNumber < next.StageNumber) {
			next = s
		}
	}
	return next
}

// FirstStage returns the lowest ordered stage, or nil for an empty list.
func FirstStage(stages []*Stage) *Stage {
	if len(stages) == 0 {
		return nil
	}
	sorted := make([]*Stage, len(stages))
	copy(sorted, stages)
	SortStages(sorted)
	return sorted[0]
}
