package query

import (
	"context"
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/leaderboard"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/internal/domain/weekly"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKINGS QUERY
// Overall, group, stage and weekly rankings. Equal scores share a rank.
// ══════════════════════════════════════════════════════════════════════════════

// RankingKind selects the board.
type RankingKind string

const (
	RankingOverall RankingKind = "overall"
	RankingGroup   RankingKind = "group"
	RankingStage   RankingKind = "stage"
	RankingWeekly  RankingKind = "weekly"
)

// GetRankingsQuery selects a ranking.
type GetRankingsQuery struct {
	Kind RankingKind

	// Group is required for RankingGroup.
	Group string

	// StageID is required for RankingStage.
	StageID string

	// WeekOf picks the week for RankingWeekly. Defaults to now.
	WeekOf time.Time

	// Limit caps the entries returned. Zero means all.
	Limit int
}

// Validate validates the query.
func (q *GetRankingsQuery) Validate() error {
	if q.Kind == "" {
		q.Kind = RankingOverall
	}
	switch q.Kind {
	case RankingOverall, RankingWeekly:
	case RankingGroup:
		if q.Group == "" {
			return shared.NewDomainError("query", "GetRankings", shared.ErrValidation, "group is required")
		}
	case RankingStage:
		if q.StageID == "" {
			return shared.NewDomainError("query", "GetRankings", shared.ErrValidation, "stage_id is required")
		}
	default:
		return shared.NewDomainError("query", "GetRankings", shared.ErrInvalidInput, "unknown ranking kind: "+string(q.Kind))
	}
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetRankings", shared.ErrNegativeValue, "limit must not be negative")
	}
	return nil
}

// RankingDTO is a ranked list.
type RankingDTO struct {
	Kind      RankingKind `json:"kind"`
	Group     string      `json:"group,omitempty"`
	StageID   string      `json:"stage_id,omitempty"`
	WeekStart string      `json:"week_start,omitempty"`
	WeekEnd   string      `json:"week_end,omitempty"`
	Total     int         `json:"total"`
	Entries   []EntryDTO  `json:"entries"`
}

// GetRankingsHandler handles GetRankingsQuery.
type GetRankingsHandler struct {
	repos uow.Repositories
	loc   *time.Location
	now   func() time.Time
}

// NewGetRankingsHandler creates a new GetRankingsHandler.
func NewGetRankingsHandler(repos uow.Repositories, loc *time.Location, now func() time.Time) *GetRankingsHandler {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &GetRankingsHandler{repos: repos, loc: loc, now: now}
}

// Handle executes the query.
func (h *GetRankingsHandler) Handle(ctx context.Context, q GetRankingsQuery) (*RankingDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_rankings: %w", err)
	}

	ranking, dto, err := h.load(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get_rankings: %w", err)
	}

	entries := ranking.Entries()
	if q.Limit > 0 {
		entries = ranking.Top(q.Limit)
	}
	dto.Total = ranking.Len()
	dto.Entries = make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dto.Entries = append(dto.Entries, NewEntryDTO(e))
	}
	return dto, nil
}

// Ranking returns the full ranking without mapping, for exports and cache
// rebuilds.
func (h *GetRankingsHandler) Ranking(ctx context.Context, q GetRankingsQuery) (*leaderboard.Ranking, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	r, _, err := h.load(ctx, q)
	return r, err
}

func (h *GetRankingsHandler) load(ctx context.Context, q GetRankingsQuery) (*leaderboard.Ranking, *RankingDTO, error) {
	dto := &RankingDTO{Kind: q.Kind}

	var (
		entries []*leaderboard.Entry
		err     error
	)
	switch q.Kind {
	case RankingGroup:
		dto.Group = q.Group
		entries, err = h.repos.Leaderboard.Overall(ctx, q.Group)
	case RankingStage:
		dto.StageID = q.StageID
		if _, err := h.repos.Stages.GetByID(ctx, q.StageID); err != nil {
			return nil, nil, err
		}
		entries, err = h.repos.Leaderboard.Stage(ctx, q.StageID)
	case RankingWeekly:
		at := q.WeekOf
		if at.IsZero() {
			at = h.now()
		}
		start, end := weekly.Week(at, h.loc)
		dto.WeekStart = timeutil.FormatCivil(start)
		dto.WeekEnd = timeutil.FormatCivil(end)
		entries, err = h.repos.Leaderboard.Weekly(ctx, start)
	default:
		entries, err = h.repos.Leaderboard.Overall(ctx, "")
	}
	if err != nil {
		return nil, nil, err
	}
	return leaderboard.NewRanking(entries), dto, nil
}
