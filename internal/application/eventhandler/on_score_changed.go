// Package eventhandler contains the reactions to committed domain events.
// Handlers keep derived stores such as the leaderboard cache in step with
// the ledger and send follow-up notifications. They never change scores.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/member"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SCORE CHANGED HANDLER
// Mirrors ledger and weekly bucket movements into the leaderboard cache.
//
// The cache is a read accelerator only. A failed update is logged and left
// for the periodic rebuild; the database stays the source of truth.
// ═══════════════════════════════════════════════════════════════════════════

// OnScoreChangedHandler updates cached boards after score movements.
type OnScoreChangedHandler struct {
	cache   leaderboard.Cache
	members member.Repository
	logger  *zap.Logger
	config  ScoreChangedConfig
}

// ScoreChangedConfig configures the handler.
type ScoreChangedConfig struct {
	// Timeout bounds one cache update.
	Timeout time.Duration
}

// DefaultScoreChangedConfig returns the default configuration.
func DefaultScoreChangedConfig() ScoreChangedConfig {
	return ScoreChangedConfig{Timeout: 2 * time.Second}
}

// NewOnScoreChangedHandler creates a new OnScoreChangedHandler. members is
// used to drop inactive members from the overall board.
func NewOnScoreChangedHandler(
	cache leaderboard.Cache,
	members member.Repository,
	log *zap.Logger,
	config ScoreChangedConfig,
) *OnScoreChangedHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultScoreChangedConfig().Timeout
	}
	return &OnScoreChangedHandler{
		cache:   cache,
		members: members,
		logger:  log.With(zap.String("handler", "on_score_changed")),
		config:  config,
	}
}

// Handle implements shared.EventHandler.
func (h *OnScoreChangedHandler) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	switch e := event.(type) {
	case shared.ScoreChangedEvent:
		return h.overall(ctx, e)
	case shared.WeeklyScoreChangedEvent:
		return h.weekly(ctx, e)
	default:
		// Events relayed from other instances arrive untyped; the next
		// rebuild covers them.
		h.logger.Debug("ignoring event", logger.EventType(string(event.EventType())))
		return nil
	}
}

func (h *OnScoreChangedHandler) overall(ctx context.Context, e shared.ScoreChangedEvent) error {
	m, err := h.members.GetByID(ctx, e.MemberID)
	if err != nil {
		if shared.IsNotFound(err) {
			return h.cache.Remove(ctx, leaderboard.BoardOverall, e.MemberID)
		}
		return fmt.Errorf("on_score_changed: load member: %w", err)
	}
	if !m.IsActive {
		return h.cache.Remove(ctx, leaderboard.BoardOverall, m.ID)
	}

	if err := h.cache.SetScore(ctx, leaderboard.BoardOverall, m.ID, e.NewTotal); err != nil {
		h.logger.Warn("failed to update overall board",
			logger.MemberID(e.MemberID),
			zap.Int("new_total", e.NewTotal),
			zap.Error(err),
		)
		return fmt.Errorf("on_score_changed: %w", err)
	}
	return nil
}

func (h *OnScoreChangedHandler) weekly(ctx context.Context, e shared.WeeklyScoreChangedEvent) error {
	board := leaderboard.WeeklyBoard(e.WeekStart)
	if err := h.cache.SetScore(ctx, board, e.MemberID, e.NewScore); err != nil {
		h.logger.Warn("failed to update weekly board",
			zap.String("board", string(board)),
			logger.MemberID(e.MemberID),
			zap.Error(err),
		)
		return fmt.Errorf("on_score_changed: %w", err)
	}
	return nil
}

// EventTypes returns the events this handler subscribes to.
func (h *OnScoreChangedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventScoreChanged, shared.EventWeeklyScoreChanged}
}
