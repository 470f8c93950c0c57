package member

import "context"

// Repository persists members. It embeds Ledger because the score column
// lives on the member row.
type Repository interface {
	Ledger

	Create(ctx context.Context, m *Member) error

	// GetByID returns ErrMemberNotFound when the member does not exist.
	GetByID(ctx context.Context, id string) (*Member, error)

	// GetByUserID returns ErrMemberNotFound when no member is linked to the user.
	GetByUserID(ctx context.Context, userID string) (*Member, error)

	// Update saves profile, stage, link and activity fields. It never touches
	// total_score.
	Update(ctx context.Context, m *Member) error

	// List returns members ordered by last name, first name.
	List(ctx context.Context, filter ListFilter) ([]*Member, error)
}

// ListFilter narrows member listings.
type ListFilter struct {
	Group      string
	StageID    string
	ActiveOnly bool
}

// Matches reports whether m passes the filter.
func (f ListFilter) Matches(m *Member) bool {
	if f.ActiveOnly && !m.IsActive {
		return false
	}
	if f.Group != "" && m.GroupName != f.Group {
		return false
	}
	if f.StageID != "" && m.CurrentStageID != f.StageID {
		return false
	}
	return true
}
