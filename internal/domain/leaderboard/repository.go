package leaderboard

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// The read model is computed from members, assignments and weekly buckets.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository loads unranked entries; callers rank them with NewRanking.
type Repository interface {
	// Overall returns active members with Score = total score. A non-empty
	// group restricts the list to that group.
	Overall(ctx context.Context, group string) ([]*Entry, error)

	// Stage returns active members currently in the stage with Score = the
	// earned sum of their completed assignments on that stage's books.
	Stage(ctx context.Context, stageID string) ([]*Entry, error)

	// Weekly returns active members with a bucket in the week, Score = the
	// bucket score.
	Weekly(ctx context.Context, weekStart time.Time) ([]*Entry, error)
}

// Cache mirrors boards in a store with fast rank lookups.
type Cache interface {
	// SetScore updates one member on a board.
	SetScore(ctx context.Context, board Board, memberID string, score int) error

	// Remove drops a member from a board.
	Remove(ctx context.Context, board Board, memberID string) error

	// Rank returns the shared rank of a member. ok is false when the board
	// or member is not cached.
	Rank(ctx context.Context, board Board, memberID string) (rank int, ok bool, err error)

	// Replace atomically swaps the whole board.
	Replace(ctx context.Context, board Board, scores map[string]int) error
}
