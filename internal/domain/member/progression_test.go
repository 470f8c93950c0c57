package member

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mahdygh/bookclub/internal/domain/book"
)

func TestEvaluateProgress(t *testing.T) {
	books := []*book.Book{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}

	tests := []struct {
		name       string
		stageID    string
		books      []*book.Book
		completed  map[string]bool
		done       int
		canAdvance bool
		percentage float64
	}{
		{"no stage", "", books, map[string]bool{"b1": true}, 0, false, 0},
		{"nothing read", "s1", books, nil, 0, false, 0},
		{"one of three", "s1", books, map[string]bool{"b1": true, "other": true}, 1, false, 33.3},
		{"all read", "s1", books, map[string]bool{"b1": true, "b2": true, "b3": true}, 3, true, 100},
		{"stage without books", "s1", nil, nil, 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := EvaluateProgress(tt.stageID, tt.books, tt.completed)
			assert.Equal(t, tt.done, p.CompletedBooks)
			assert.Equal(t, tt.canAdvance, p.CanAdvance())
			assert.Equal(t, tt.percentage, p.Percentage())
		})
	}
}
