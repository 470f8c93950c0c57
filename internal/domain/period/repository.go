package period

import "context"

// Repository persists reading periods.
type Repository interface {
	// Create stores a new period.
	Create(ctx context.Context, p *ReadingPeriod) error

	// GetByID returns ErrPeriodNotFound when the period does not exist.
	GetByID(ctx context.Context, id string) (*ReadingPeriod, error)

	// GetActive returns the active period or ErrPeriodNotFound.
	GetActive(ctx context.Context) (*ReadingPeriod, error)

	// List returns all periods, newest start date first.
	List(ctx context.Context) ([]*ReadingPeriod, error)

	// Update saves period fields.
	Update(ctx context.Context, p *ReadingPeriod) error

	// DeactivateAllExcept clears is_active on every other period.
	DeactivateAllExcept(ctx context.Context, id string) error
}

// StageRepository persists stages.
type StageRepository interface {
	// Create returns ErrStageExists when (period_id, stage_number) is taken.
	Create(ctx context.Context, s *Stage) error

	// GetByID returns ErrStageNotFound when the stage does not exist.
	GetByID(ctx context.Context, id string) (*Stage, error)

	// ListByPeriod returns stages ordered by order, stage_number.
	ListByPeriod(ctx context.Context, periodID string) ([]*Stage, error)
}
