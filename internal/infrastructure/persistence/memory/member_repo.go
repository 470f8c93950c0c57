package memory

import (
	"context"
	"sort"

	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// MemberRepository implements member.Repository.
type MemberRepository struct {
	h *handle
}

func (r *MemberRepository) Create(_ context.Context, m *member.Member) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.members[m.ID]; ok {
		return shared.NewDomainError("member", "Create", shared.ErrAlreadyExists, "member already exists")
	}
	st.members[m.ID] = *m
	return nil
}

func (r *MemberRepository) GetByID(_ context.Context, id string) (*member.Member, error) {
	st, done := r.h.read()
	defer done()

	m, ok := st.members[id]
	if !ok {
		return nil, shared.ErrMemberNotFound
	}
	return &m, nil
}

func (r *MemberRepository) GetByUserID(_ context.Context, userID string) (*member.Member, error) {
	st, done := r.h.read()
	defer done()

	for _, m := range st.members {
		if userID != "" && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, shared.ErrMemberNotFound
}

// Update keeps the stored total_score; only the ledger moves it.
func (r *MemberRepository) Update(_ context.Context, m *member.Member) error {
	st, done := r.h.write()
	defer done()

	existing, ok := st.members[m.ID]
	if !ok {
		return shared.ErrMemberNotFound
	}
	updated := *m
	updated.TotalScore = existing.TotalScore
	st.members[m.ID] = updated
	return nil
}

func (r *MemberRepository) List(_ context.Context, filter member.ListFilter) ([]*member.Member, error) {
	st, done := r.h.read()
	defer done()

	var out []*member.Member
	for _, m := range st.members {
		if filter.Matches(&m) {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AddScore implements member.Ledger.
func (r *MemberRepository) AddScore(_ context.Context, memberID string, delta int) (int, bool, error) {
	st, done := r.h.write()
	defer done()

	m, ok := st.members[memberID]
	if !ok {
		return 0, false, nil
	}
	m.TotalScore = max(m.TotalScore+delta, 0)
	m.UpdatedAt = r.h.now()
	st.members[memberID] = m
	return m.TotalScore, true, nil
}
