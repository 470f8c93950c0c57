package memory

import (
	"context"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/member"
)

// LeaderboardRepository implements leaderboard.Repository over the in-memory
// tables.
type LeaderboardRepository struct {
	h *handle
}

func entryFor(m member.Member, score, completed int) *leaderboard.Entry {
	return &leaderboard.Entry{
		MemberID:       m.ID,
		FullName:       m.FullName(),
		GroupName:      m.GroupName,
		Score:          score,
		TotalScore:     m.TotalScore,
		CompletedBooks: completed,
	}
}

// completedBooks counts distinct completed books per member, optionally
// restricted to one stage.
func completedBooks(st *state, stageID string) map[string]map[string]bool {
	out := map[string]map[string]bool{}
	for _, row := range st.assignments {
		if !row.IsCompleted || row.ReturnedDate == nil {
			continue
		}
		if stageID != "" {
			if b, ok := st.books[row.BookID]; !ok || b.StageID != stageID {
				continue
			}
		}
		if out[row.MemberID] == nil {
			out[row.MemberID] = map[string]bool{}
		}
		out[row.MemberID][row.BookID] = true
	}
	return out
}

func (r *LeaderboardRepository) Overall(_ context.Context, group string) ([]*leaderboard.Entry, error) {
	st, done := r.h.read()
	defer done()

	filter := member.ListFilter{Group: group, ActiveOnly: true}
	books := completedBooks(st, "")

	var out []*leaderboard.Entry
	for _, m := range st.members {
		if filter.Matches(&m) {
			out = append(out, entryFor(m, m.TotalScore, len(books[m.ID])))
		}
	}
	return out, nil
}

func (r *LeaderboardRepository) Stage(_ context.Context, stageID string) ([]*leaderboard.Entry, error) {
	st, done := r.h.read()
	defer done()

	stageScores := map[string]int{}
	for _, row := range st.assignments {
		if !row.IsCompleted || row.ReturnedDate == nil {
			continue
		}
		if b, ok := st.books[row.BookID]; ok && b.StageID == stageID {
			stageScores[row.MemberID] += row.Scores.Total()
		}
	}
	books := completedBooks(st, stageID)

	filter := member.ListFilter{StageID: stageID, ActiveOnly: true}
	var out []*leaderboard.Entry
	for _, m := range st.members {
		if filter.Matches(&m) {
			out = append(out, entryFor(m, stageScores[m.ID], len(books[m.ID])))
		}
	}
	return out, nil
}

func (r *LeaderboardRepository) Weekly(_ context.Context, weekStart time.Time) ([]*leaderboard.Entry, error) {
	st, done := r.h.read()
	defer done()

	books := completedBooks(st, "")

	var out []*leaderboard.Entry
	for key, b := range st.weekly {
		if !key.weekStart.Equal(weekStart) {
			continue
		}
		m, ok := st.members[key.memberID]
		if !ok || !m.IsActive {
			continue
		}
		out = append(out, entryFor(m, b.Score, len(books[m.ID])))
	}
	return out, nil
}
