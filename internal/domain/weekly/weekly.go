// Package weekly aggregates earned scores into Saturday to Friday buckets
// per member. Buckets are a derived view of the ledger: every ledger
// movement with a return date lands in the bucket of that date's week.
package weekly

import (
	"context"
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// Bucket is one member's score for one week. WeekStart and WeekEnd are civil
// dates (midnight UTC of the local calendar day).
type Bucket struct {
	ID        string
	MemberID  string
	WeekStart time.Time
	WeekEnd   time.Time
	Score     int
	UpdatedAt time.Time
}

// Week returns the civil Saturday and Friday bounding the local date of t.
func Week(t time.Time, loc *time.Location) (start, end time.Time) {
	start = timeutil.StartOfWeek(t, loc)
	return start, start.AddDate(0, 0, 6)
}

// Repository persists buckets.
type Repository interface {
	// AddScore upserts the bucket and sets score = max(score + delta, 0) in
	// one statement. A missing bucket is created with max(delta, 0).
	AddScore(ctx context.Context, memberID string, weekStart, weekEnd time.Time, delta int) (int, error)

	// Get returns the bucket or nil when none exists.
	Get(ctx context.Context, memberID string, weekStart time.Time) (*Bucket, error)

	// ListByMember returns the member's buckets, newest week first.
	ListByMember(ctx context.Context, memberID string) ([]*Bucket, error)

	// ListByWeek returns every bucket of a week.
	ListByWeek(ctx context.Context, weekStart time.Time) ([]*Bucket, error)
}

// Movement describes one bucket change.
type Movement struct {
	MemberID  string
	WeekStart time.Time
	Delta     int
	NewScore  int
}

// ApplyDelta adds delta to the bucket of ref's week. A nil ref, an empty
// member or a zero delta is a no-op.
func ApplyDelta(ctx context.Context, repo Repository, memberID string, delta int, ref *time.Time, loc *time.Location) (Movement, bool, error) {
	if ref == nil || memberID == "" || delta == 0 {
		return Movement{}, false, nil
	}

	start, end := Week(*ref, loc)
	score, err := repo.AddScore(ctx, memberID, start, end, delta)
	if err != nil {
		return Movement{}, false, fmt.Errorf("apply weekly delta %+d to %s@%s: %w",
			delta, memberID, timeutil.FormatCivil(start), err)
	}

	return Movement{MemberID: memberID, WeekStart: start, Delta: delta, NewScore: score}, true, nil
}
