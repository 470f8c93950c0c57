package member

import (
	"math"

	"github.com/mahdygh/bookclub/internal/domain/book"
)

// Progress summarises a member's position inside the current stage.
type Progress struct {
	StageID        string
	TotalBooks     int
	CompletedBooks int
	Completed      []*book.Book
	Remaining      []*book.Book
}

// EvaluateProgress splits the stage's books into completed and remaining.
// completed holds the ids of distinct books the member has finished, in any
// stage, so only books of this stage are counted.
func EvaluateProgress(stageID string, stageBooks []*book.Book, completed map[string]bool) Progress {
	p := Progress{StageID: stageID}
	if stageID == "" {
		return p
	}

	p.TotalBooks = len(stageBooks)
	for _, b := range stageBooks {
		if completed[b.ID] {
			p.Completed = append(p.Completed, b)
		} else {
			p.Remaining = append(p.Remaining, b)
		}
	}
	p.CompletedBooks = len(p.Completed)
	return p
}

// CanAdvance is true once every book of the current stage is done.
// A stage without books is considered done.
func (p Progress) CanAdvance() bool {
	if p.StageID == "" {
		return false
	}
	return p.CompletedBooks >= p.TotalBooks
}

// Percentage is the completed share rounded to one decimal place.
func (p Progress) Percentage() float64 {
	if p.StageID == "" || p.TotalBooks == 0 {
		return 0
	}
	pct := float64(p.CompletedBooks) / float64(p.TotalBooks) * 100
	return math.Round(pct*10) / 10
}
