package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEMBER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MemberRepository implements member.Repository for PostgreSQL. The ledger
// column total_score is written only by AddScore.
type MemberRepository struct {
	q Querier
}

const memberColumns = `id, first_name, last_name, group_name, user_id, current_stage_id,
	total_score, is_active, created_at, updated_at`

// nullString maps the domain's empty string to SQL NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scanMember(row pgx.Row) (*member.Member, error) {
	var (
		m       member.Member
		userID  *string
		stageID *string
	)
	err := row.Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.GroupName, &userID, &stageID,
		&m.TotalScore, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.UserID = derefString(userID)
	m.CurrentStageID = derefString(stageID)
	return &m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create stores a new member.
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.FirstName, m.LastName, m.GroupName, nullString(m.UserID), nullString(m.CurrentStageID),
		m.TotalScore, m.IsActive, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("member", "Create", shared.ErrAlreadyExists, "member or user link already exists")
		}
		if IsForeignKeyViolation(err) {
			return shared.NewDomainError("member", "Create", shared.ErrNotFound, "linked user or stage not found")
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetByID returns a member by ID.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*member.Member, error) {
	m, err := scanMember(r.q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetByUserID returns the member linked to a login account.
func (r *MemberRepository) GetByUserID(ctx context.Context, userID string) (*member.Member, error) {
	if userID == "" {
		return nil, shared.ErrMemberNotFound
	}
	m, err := scanMember(r.q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE user_id = $1`, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member by user: %w", err)
	}
	return m, nil
}

// Update saves everything but total_score.
func (r *MemberRepository) Update(ctx context.Context, m *member.Member) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE members
		SET first_name = $2, last_name = $3, group_name = $4, user_id = $5,
		    current_stage_id = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`, m.ID, m.FirstName, m.LastName, m.GroupName, nullString(m.UserID),
		nullString(m.CurrentStageID), m.IsActive, m.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("member", "Update", shared.ErrAlreadyExists, "user is linked to another member")
		}
		if IsForeignKeyViolation(err) {
			return shared.NewDomainError("member", "Update", shared.ErrNotFound, "linked user or stage not found")
		}
		return fmt.Errorf("failed to update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMemberNotFound
	}
	return nil
}

// List returns members ordered by last name, first name.
func (r *MemberRepository) List(ctx context.Context, filter member.ListFilter) ([]*member.Member, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+memberColumns+` FROM members
		WHERE ($1 = '' OR group_name = $1)
		  AND ($2 = '' OR current_stage_id = $2)
		  AND (NOT $3 OR is_active)
		ORDER BY last_name, first_name, id
	`, filter.Group, filter.StageID, filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []*member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Ledger
// ─────────────────────────────────────────────────────────────────────────────

// AddScore moves total_score by delta in one statement, clamped at zero.
// found is false when the member row does not exist.
func (r *MemberRepository) AddScore(ctx context.Context, memberID string, delta int) (int, bool, error) {
	var total int
	err := r.q.QueryRow(ctx, `
		UPDATE members
		SET total_score = GREATEST(total_score + $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING total_score
	`, memberID, delta).Scan(&total)
	if err != nil {
		if IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to add score: %w", err)
	}
	return total, true, nil
}

var _ member.Repository = (*MemberRepository)(nil)
