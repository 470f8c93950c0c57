package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/member"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
// It returns unranked entries; leaderboard.NewRanking orders them and
// assigns shared ranks.
type LeaderboardRepository struct {
	q Querier
}

// completedBooksCTE counts distinct completed books per member, restricted
// to one stage when $stage is not empty.
const completedBooksCTE = `
	completed AS (
		SELECT a.member_id,
		       COUNT(DISTINCT a.book_id) AS books,
		       SUM(a.reading_score_earned + a.quiz_score_earned) AS earned
		FROM assignments a
		JOIN books b ON b.id = a.book_id
		WHERE a.is_completed AND a.returned_date IS NOT NULL
		  AND (%s = '' OR b.stage_id = %s)
		GROUP BY a.member_id
	)`

func withCompleted(stageParam string) string {
	return "WITH " + fmt.Sprintf(completedBooksCTE, stageParam, stageParam)
}

// Overall ranks active members by total_score, optionally within one group.
func (r *LeaderboardRepository) Overall(ctx context.Context, group string) ([]*leaderboard.Entry, error) {
	return r.entries(ctx, withCompleted("''")+`
		SELECT m.id, m.first_name, m.last_name, m.group_name, m.total_score, m.total_score,
		       COALESCE(c.books, 0)
		FROM members m
		LEFT JOIN completed c ON c.member_id = m.id
		WHERE m.is_active AND ($1 = '' OR m.group_name = $1)
	`, group)
}

// Stage ranks the active members currently in a stage by the points earned
// from that stage's books.
func (r *LeaderboardRepository) Stage(ctx context.Context, stageID string) ([]*leaderboard.Entry, error) {
	return r.entries(ctx, withCompleted("$1")+`
		SELECT m.id, m.first_name, m.last_name, m.group_name, COALESCE(c.earned, 0)::integer, m.total_score,
		       COALESCE(c.books, 0)
		FROM members m
		LEFT JOIN completed c ON c.member_id = m.id
		WHERE m.is_active AND m.current_stage_id = $1
	`, stageID)
}

// Weekly ranks active members that have a bucket for the week.
func (r *LeaderboardRepository) Weekly(ctx context.Context, weekStart time.Time) ([]*leaderboard.Entry, error) {
	return r.entries(ctx, withCompleted("''")+`
		SELECT m.id, m.first_name, m.last_name, m.group_name, w.weekly_score, m.total_score,
		       COALESCE(c.books, 0)
		FROM weekly_scores w
		JOIN members m ON m.id = w.member_id
		LEFT JOIN completed c ON c.member_id = m.id
		WHERE m.is_active AND w.week_start_date = $1
	`, weekStart)
}

func (r *LeaderboardRepository) entries(ctx context.Context, query string, args ...interface{}) ([]*leaderboard.Entry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []*leaderboard.Entry
	for rows.Next() {
		var (
			m     member.Member
			e     leaderboard.Entry
			books int64
		)
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.GroupName, &e.Score, &e.TotalScore, &books); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.MemberID = m.ID
		e.FullName = m.FullName()
		e.GroupName = m.GroupName
		e.CompletedBooks = int(books)
		out = append(out, &e)
	}
	return out, rows.Err()
}

var _ leaderboard.Repository = (*LeaderboardRepository)(nil)
