package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
	"github.com/mahdygh/bookclub/pkg/logger"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MEMBER RANK QUERY
// Where a member stands overall, inside their group and this week. The
// overall rank is read from the leaderboard cache when one is configured and
// recomputed from the database otherwise.
// ══════════════════════════════════════════════════════════════════════════════

// GetMemberRankQuery selects the member.
type GetMemberRankQuery struct {
	MemberID string
}

// MemberRankDTO is a member's position on every board.
type MemberRankDTO struct {
	MemberID     string `json:"member_id"`
	TotalScore   int    `json:"total_score"`
	OverallRank  int    `json:"overall_rank"`
	OverallTotal int    `json:"overall_total"`
	GroupName    string `json:"group_name,omitempty"`
	GroupRank    int    `json:"group_rank,omitempty"`
	GroupTotal   int    `json:"group_total,omitempty"`
	WeekStart    string `json:"week_start"`
	WeeklyScore  int    `json:"weekly_score"`

	// WeeklyRank is zero when the member has no score this week.
	WeeklyRank int `json:"weekly_rank,omitempty"`

	// FromCache reports whether OverallRank came from the cache.
	FromCache bool `json:"from_cache"`
}

// GetMemberRankHandler handles GetMemberRankQuery.
type GetMemberRankHandler struct {
	repos  uow.Repositories
	cache  leaderboard.Cache
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewGetMemberRankHandler creates a new GetMemberRankHandler. cache may be nil.
func NewGetMemberRankHandler(repos uow.Repositories, cache leaderboard.Cache, loc *time.Location, now func() time.Time, log *zap.Logger) *GetMemberRankHandler {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GetMemberRankHandler{repos: repos, cache: cache, loc: loc, now: now, logger: log}
}

// Handle executes the query.
func (h *GetMemberRankHandler) Handle(ctx context.Context, q GetMemberRankQuery) (*MemberRankDTO, error) {
	m, err := h.repos.Members.GetByID(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("get_member_rank: %w", err)
	}

	dto := &MemberRankDTO{
		MemberID:   m.ID,
		TotalScore: m.TotalScore,
		GroupName:  m.GroupName,
	}

	overall, err := h.repos.Leaderboard.Overall(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get_member_rank: overall: %w", err)
	}
	dto.OverallTotal = len(overall)
	dto.OverallRank, dto.FromCache = h.cachedRank(ctx, leaderboard.BoardOverall, m.ID)
	if !dto.FromCache {
		if e := leaderboard.NewRanking(overall).GetByID(m.ID); e != nil {
			dto.OverallRank = e.Rank
		}
	}

	if m.GroupName != "" {
		group, err := h.repos.Leaderboard.Overall(ctx, m.GroupName)
		if err != nil {
			return nil, fmt.Errorf("get_member_rank: group: %w", err)
		}
		dto.GroupTotal = len(group)
		if e := leaderboard.NewRanking(group).GetByID(m.ID); e != nil {
			dto.GroupRank = e.Rank
		}
	}

	start, _ := weekly.Week(h.now(), h.loc)
	dto.WeekStart = timeutil.FormatCivil(start)
	week, err := h.repos.Leaderboard.Weekly(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("get_member_rank: weekly: %w", err)
	}
	if e := leaderboard.NewRanking(week).GetByID(m.ID); e != nil {
		dto.WeeklyScore = e.Score
		dto.WeeklyRank = e.Rank
	}

	return dto, nil
}

func (h *GetMemberRankHandler) cachedRank(ctx context.Context, board leaderboard.Board, memberID string) (int, bool) {
	if h.cache == nil {
		return 0, false
	}
	rank, ok, err := h.cache.Rank(ctx, board, memberID)
	if err != nil {
		h.logger.Warn("leaderboard cache lookup failed, using database",
			zap.String("board", string(board)),
			logger.MemberID(memberID),
			zap.Error(err),
		)
		return 0, false
	}
	return rank, ok
}
