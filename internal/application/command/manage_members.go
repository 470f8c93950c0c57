package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/mahdygh/bookclub/internal/domain/account"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/period"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// MemberHandler handles member management and account linking.
type MemberHandler struct {
	env Env
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(env Env) *MemberHandler {
	return &MemberHandler{env: env.withDefaults()}
}

// CreateMemberCommand contains a new member.
type CreateMemberCommand struct {
	FirstName string
	LastName  string
	GroupName string

	// StageID places the member. When empty the member starts in the first
	// stage of the active period, if there is one.
	StageID string
}

// CreateMember stores an active member with a zero ledger.
func (h *MemberHandler) CreateMember(ctx context.Context, cmd CreateMemberCommand) (*member.Member, error) {
	var m *member.Member
	_, err := h.env.run(ctx, "create_member", func(ctx context.Context, tx *txn) error {
		stageID := cmd.StageID
		if stageID != "" {
			if _, err := tx.repos.Stages.GetByID(ctx, stageID); err != nil {
				return err
			}
		} else {
			first, err := firstActiveStage(ctx, tx)
			if err != nil {
				return err
			}
			if first != nil {
				stageID = first.ID
			}
		}

		var err error
		m, err = member.NewMember(h.env.NewID(), cmd.FirstName, cmd.LastName, cmd.GroupName, stageID, h.env.Now())
		if err != nil {
			return err
		}
		return tx.repos.Members.Create(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("create_member: %w", err)
	}

	h.env.log(ctx).Info("member created",
		logger.MemberID(m.ID),
		logger.StageID(m.CurrentStageID),
	)
	return m, nil
}

func firstActiveStage(ctx context.Context, tx *txn) (*period.Stage, error) {
	active, err := tx.repos.Periods.GetActive(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			return nil, nil
		}
		return nil, err
	}
	stages, err := tx.repos.Stages.ListByPeriod(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	return period.FirstStage(stages), nil
}

// UpdateMemberCommand contains the member fields to change. Nil means
// unchanged. The ledger cannot be edited.
type UpdateMemberCommand struct {
	MemberID       string
	FirstName      *string
	LastName       *string
	GroupName      *string
	CurrentStageID *string
	IsActive       *bool
}

// UpdateMember edits profile, placement and activity.
func (h *MemberHandler) UpdateMember(ctx context.Context, cmd UpdateMemberCommand) (*member.Member, error) {
	if cmd.MemberID == "" {
		return nil, fmt.Errorf("update_member: %w", invalid("UpdateMember", "member_id is required"))
	}

	var m *member.Member
	_, err := h.env.run(ctx, "update_member", func(ctx context.Context, tx *txn) error {
		var err error
		m, err = tx.repos.Members.GetByID(ctx, cmd.MemberID)
		if err != nil {
			return err
		}

		setString(&m.FirstName, cmd.FirstName)
		setString(&m.LastName, cmd.LastName)
		setString(&m.GroupName, cmd.GroupName)
		if cmd.IsActive != nil {
			m.IsActive = *cmd.IsActive
		}
		if cmd.CurrentStageID != nil && *cmd.CurrentStageID != m.CurrentStageID {
			if *cmd.CurrentStageID != "" {
				if _, err := tx.repos.Stages.GetByID(ctx, *cmd.CurrentStageID); err != nil {
					return err
				}
			}
			m.MoveToStage(*cmd.CurrentStageID, h.env.Now())
		}
		if err := m.Validate(); err != nil {
			return err
		}

		m.UpdatedAt = h.env.Now()
		return tx.repos.Members.Update(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("update_member: %w", err)
	}
	return m, nil
}

// CreateMemberAccountCommand contains the credentials of a new account.
type CreateMemberAccountCommand struct {
	MemberID string
	Username string
	Password string
}

// CreateMemberAccount creates a login account and links it to the member.
// The password is stored as a bcrypt hash only.
func (h *MemberHandler) CreateMemberAccount(ctx context.Context, cmd CreateMemberAccountCommand) (*account.User, error) {
	if cmd.MemberID == "" {
		return nil, fmt.Errorf("create_member_account: %w", invalid("CreateMemberAccount", "member_id is required"))
	}

	// Hashed once, outside the transaction.
	u, err := account.NewUser(h.env.NewID(), cmd.Username, cmd.Password, h.env.Now())
	if err != nil {
		return nil, fmt.Errorf("create_member_account: %w", err)
	}

	_, err = h.env.run(ctx, "create_member_account", func(ctx context.Context, tx *txn) error {
		m, err := tx.repos.Members.GetByID(ctx, cmd.MemberID)
		if err != nil {
			return err
		}
		if err := m.LinkAccount(u.ID, h.env.Now()); err != nil {
			return err
		}
		if err := tx.repos.Accounts.Create(ctx, u); err != nil {
			return err
		}
		return tx.repos.Members.Update(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("create_member_account: %w", err)
	}

	h.env.log(ctx).Info("member account created",
		logger.MemberID(cmd.MemberID),
		logger.UserID(u.ID),
	)
	return u, nil
}
