package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mahdygh/bookclub/internal/domain/weekly"
)

// WeeklyRepository implements weekly.Repository.
type WeeklyRepository struct {
	h *handle
}

// AddScore mirrors the SQL upsert: a new bucket starts at max(delta, 0) and
// an existing one moves to max(score + delta, 0).
func (r *WeeklyRepository) AddScore(_ context.Context, memberID string, weekStart, weekEnd time.Time, delta int) (int, error) {
	st, done := r.h.write()
	defer done()

	key := weekKey{memberID: memberID, weekStart: weekStart}
	b, ok := st.weekly[key]
	if !ok {
		b = weekly.Bucket{
			ID:        uuid.NewString(),
			MemberID:  memberID,
			WeekStart: weekStart,
			WeekEnd:   weekEnd,
		}
	}
	b.Score = max(b.Score+delta, 0)
	b.UpdatedAt = r.h.now()
	st.weekly[key] = b
	return b.Score, nil
}

func (r *WeeklyRepository) Get(_ context.Context, memberID string, weekStart time.Time) (*weekly.Bucket, error) {
	st, done := r.h.read()
	defer done()

	b, ok := st.weekly[weekKey{memberID: memberID, weekStart: weekStart}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *WeeklyRepository) ListByMember(_ context.Context, memberID string) ([]*weekly.Bucket, error) {
	st, done := r.h.read()
	defer done()

	var out []*weekly.Bucket
	for _, b := range st.weekly {
		if b.MemberID == memberID {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart) })
	return out, nil
}

func (r *WeeklyRepository) ListByWeek(_ context.Context, weekStart time.Time) ([]*weekly.Bucket, error) {
	st, done := r.h.read()
	defer done()

	var out []*weekly.Bucket
	for _, b := range st.weekly {
		if b.WeekStart.Equal(weekStart) {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}
