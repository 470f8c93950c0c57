// Package leaderboard builds ranked views over member scores: overall,
// per group, per stage and per week.
package leaderboard

import (
	"sort"
	"time"

	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOARDS
// ══════════════════════════════════════════════════════════════════════════════

// Board names a cached ranking.
type Board string

// BoardOverall ranks every active member by total score.
const BoardOverall Board = "overall"

// WeeklyBoard names the board of the week starting at weekStart.
func WeeklyBoard(weekStart time.Time) Board {
	return Board("weekly:" + timeutil.FormatCivil(weekStart))
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one row of a ranking. Score is the ranking key: the total for
// overall and group boards, the stage score for stage boards and the
// weekly score for weekly boards.
type Entry struct {
	Rank           int
	MemberID       string
	FullName       string
	GroupName      string
	Score          int
	TotalScore     int
	CompletedBooks int
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING (Ranked List)
// ══════════════════════════════════════════════════════════════════════════════

// Ranking is a sorted list with shared ranks for equal scores.
type Ranking struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewRanking sorts entries by Score desc, TotalScore desc, MemberID asc and
// assigns ranks. Equal scores share a rank: rank = 1 + number of entries
// with a strictly higher score.
func NewRanking(entries []*Entry) *Ranking {
	r := &Ranking{
		entries: entries,
		byID:    make(map[string]*Entry, len(entries)),
	}

	sort.SliceStable(r.entries, func(i, j int) bool {
		a, b := r.entries[i], r.entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.MemberID < b.MemberID
	})

	for i, e := range r.entries {
		if i > 0 && e.Score == r.entries[i-1].Score {
			e.Rank = r.entries[i-1].Rank
		} else {
			e.Rank = i + 1
		}
		r.byID[e.MemberID] = e
	}
	return r
}

// Entries returns the sorted entries.
func (r *Ranking) Entries() []*Entry {
	return r.entries
}

// Len returns the number of entries.
func (r *Ranking) Len() int {
	return len(r.entries)
}

// GetByID returns the entry of a member, or nil.
func (r *Ranking) GetByID(memberID string) *Entry {
	return r.byID[memberID]
}

// Top returns the first n entries.
func (r *Ranking) Top(n int) []*Entry {
	if n <= 0 {
		return nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	result := make([]*Entry, n)
	copy(result, r.entries[:n])
	return result
}

// Scores returns memberID -> Score, the shape cached boards store.
func (r *Ranking) Scores() map[string]int {
	out := make(map[string]int, len(r.entries))
	for _, e := range r.entries {
		out[e.MemberID] = e.Score
	}
	return out
}

// RankOf returns 1 + the number of scores strictly greater than score.
func RankOf(scores []int, score int) int {
	rank := 1
	for _, s := range scores {
		if s > score {
			rank++
		}
	}
	return rank
}
