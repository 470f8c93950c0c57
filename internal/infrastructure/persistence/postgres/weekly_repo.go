package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mahdygh/bookclub/internal/domain/weekly"
)

// WeeklyRepository implements weekly.Repository for PostgreSQL.
type WeeklyRepository struct {
	q Querier
}

const weeklyColumns = `id, member_id, week_start_date, week_end_date, weekly_score, updated_at`

func scanBucket(row pgx.Row) (*weekly.Bucket, error) {
	var b weekly.Bucket
	if err := row.Scan(&b.ID, &b.MemberID, &b.WeekStart, &b.WeekEnd, &b.Score, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// AddScore upserts the bucket in one statement. A new bucket starts at
// max(delta, 0); an existing one moves to max(score + delta, 0).
func (r *WeeklyRepository) AddScore(ctx context.Context, memberID string, weekStart, weekEnd time.Time, delta int) (int, error) {
	var score int
	err := r.q.QueryRow(ctx, `
		INSERT INTO weekly_scores (id, member_id, week_start_date, week_end_date, weekly_score, updated_at)
		VALUES ($1, $2, $3, $4, GREATEST($5::integer, 0), NOW())
		ON CONFLICT (member_id, week_start_date) DO UPDATE
		SET weekly_score = GREATEST(weekly_scores.weekly_score + $5::integer, 0),
		    updated_at = NOW()
		RETURNING weekly_score
	`, uuid.NewString(), memberID, weekStart, weekEnd, delta).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("failed to add weekly score: %w", err)
	}
	return score, nil
}

// Get returns the bucket of a member's week, or nil when none exists.
func (r *WeeklyRepository) Get(ctx context.Context, memberID string, weekStart time.Time) (*weekly.Bucket, error) {
	b, err := scanBucket(r.q.QueryRow(ctx, `
		SELECT `+weeklyColumns+` FROM weekly_scores
		WHERE member_id = $1 AND week_start_date = $2
	`, memberID, weekStart))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get weekly score: %w", err)
	}
	return b, nil
}

// ListByMember returns a member's buckets, newest week first.
func (r *WeeklyRepository) ListByMember(ctx context.Context, memberID string) ([]*weekly.Bucket, error) {
	return r.list(ctx, `
		SELECT `+weeklyColumns+` FROM weekly_scores
		WHERE member_id = $1
		ORDER BY week_start_date DESC
	`, memberID)
}

// ListByWeek returns every bucket of one week.
func (r *WeeklyRepository) ListByWeek(ctx context.Context, weekStart time.Time) ([]*weekly.Bucket, error) {
	return r.list(ctx, `
		SELECT `+weeklyColumns+` FROM weekly_scores
		WHERE week_start_date = $1
		ORDER BY member_id
	`, weekStart)
}

func (r *WeeklyRepository) list(ctx context.Context, query string, args ...interface{}) ([]*weekly.Bucket, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly scores: %w", err)
	}
	defer rows.Close()

	var out []*weekly.Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly score: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ weekly.Repository = (*WeeklyRepository)(nil)
