package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/infrastructure/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache mirrors boards in Redis sorted sets.
//
// Architecture:
//   - Sorted Set "{prefix}leaderboard:{board}" stores memberID -> score
//   - Weekly boards expire WeeklyBoardTTL after their last write
//
// Shared ranks are 1 + ZCOUNT of strictly higher scores, so ties rank alike
// exactly as the database ranking does.
type LeaderboardCache struct {
	cache *Cache
}

// WeeklyBoardTTL keeps past weeks around long enough for late lookups.
const WeeklyBoardTTL = 35 * 24 * time.Hour

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func (l *LeaderboardCache) key(board leaderboard.Board) string {
	return l.cache.Key("leaderboard:" + string(board))
}

func isWeekly(board leaderboard.Board) bool {
	return strings.HasPrefix(string(board), "weekly:")
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// SetScore updates or adds one member. O(log N).
func (l *LeaderboardCache) SetScore(ctx context.Context, board leaderboard.Board, memberID string, score int) error {
	if memberID == "" {
		return ErrCacheKeyEmpty
	}

	key := l.key(board)
	pipe := l.cache.Client().Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: memberID})
	if isWeekly(board) {
		pipe.Expire(ctx, key, WeeklyBoardTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Remove drops a member from a board.
func (l *LeaderboardCache) Remove(ctx context.Context, board leaderboard.Board, memberID string) error {
	if memberID == "" {
		return ErrCacheKeyEmpty
	}
	return l.cache.Client().ZRem(ctx, l.key(board), memberID).Err()
}

// Replace swaps the whole board in one MULTI/EXEC block.
func (l *LeaderboardCache) Replace(ctx context.Context, board leaderboard.Board, scores map[string]int) error {
	key := l.key(board)
	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, key)

	if len(scores) > 0 {
		members := make([]redis.Z, 0, len(scores))
		for id, score := range scores {
			if id == "" {
				continue
			}
			members = append(members, redis.Z{Score: float64(score), Member: id})
		}
		pipe.ZAdd(ctx, key, members...)
		if isWeekly(board) {
			pipe.Expire(ctx, key, WeeklyBoardTTL)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Rank returns the shared rank of a member, ok=false when not cached.
func (l *LeaderboardCache) Rank(ctx context.Context, board leaderboard.Board, memberID string) (int, bool, error) {
	if memberID == "" {
		return 0, false, ErrCacheKeyEmpty
	}
	key := l.key(board)

	score, err := l.cache.Client().ZScore(ctx, key, memberID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheLookup("miss")
			return 0, false, nil
		}
		metrics.CacheLookup("error")
		return 0, false, err
	}

	higher, err := l.cache.Client().ZCount(ctx, key, "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		metrics.CacheLookup("error")
		return 0, false, err
	}

	metrics.CacheLookup("hit")
	return int(higher) + 1, true, nil
}

// Count returns the number of members on a board.
func (l *LeaderboardCache) Count(ctx context.Context, board leaderboard.Board) (int64, error) {
	return l.cache.Client().ZCard(ctx, l.key(board)).Result()
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)
