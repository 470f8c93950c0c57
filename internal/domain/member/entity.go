// Package member models club members, their score ledger and their
// progression through the stages of a reading period.
package member

import (
	"strings"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// Member is a participant. TotalScore is the persisted ledger value and is
// only ever moved through ApplyDelta.
type Member struct {
	ID        string
	FirstName string
	LastName  string
	GroupName string

	// UserID links the member to a login account. Empty when unlinked.
	UserID string

	// CurrentStageID is empty when the member has not been placed yet.
	CurrentStageID string

	TotalScore int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewMember creates an active member with a zero ledger.
func NewMember(id, firstName, lastName, group, stageID string, now time.Time) (*Member, error) {
	m := &Member{
		ID:             id,
		FirstName:      strings.TrimSpace(firstName),
		LastName:       strings.TrimSpace(lastName),
		GroupName:      strings.TrimSpace(group),
		CurrentStageID: stageID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the member invariants.
func (m *Member) Validate() error {
	if m.ID == "" {
		return shared.NewDomainError("member", "Validate", shared.ErrInvalidID, "member id is required")
	}
	if m.FirstName == "" && m.LastName == "" {
		return shared.NewDomainError("member", "Validate", shared.ErrEmptyValue, "member name is required")
	}
	if m.TotalScore < 0 {
		return shared.NewDomainError("member", "Validate", shared.ErrNegativeValue, "total score must not be negative")
	}
	return nil
}

// FullName returns "First Last" without stray spaces.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// HasStage reports whether the member has been placed in a stage.
func (m *Member) HasStage() bool {
	return m.CurrentStageID != ""
}

// HasAccount reports whether a login account is linked.
func (m *Member) HasAccount() bool {
	return m.UserID != ""
}

// MoveToStage sets the current stage.
func (m *Member) MoveToStage(stageID string, now time.Time) {
	m.CurrentStageID = stageID
	m.UpdatedAt = now
}

// LinkAccount attaches a user account once.
func (m *Member) LinkAccount(userID string, now time.Time) error {
	if m.HasAccount() {
		return shared.ErrMemberAlreadyLinked
	}
	m.UserID = userID
	m.UpdatedAt = now
	return nil
}
