package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mahdygh/bookclub/config"
	"github.com/mahdygh/bookclub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRankings handles GET /api/v1/rankings?group=&limit=
func (s *Server) handleRankings(c *fiber.Ctx) error {
	q := query.GetRankingsQuery{Kind: query.RankingOverall, Limit: c.QueryInt("limit", 0)}
	if group := c.Query("group"); group != "" {
		q.Kind = query.RankingGroup
		q.Group = group
	}
	return s.ranking(c, q)
}

// handleWeeklyRankings handles GET /api/v1/rankings/weekly?date=YYYY-MM-DD
func (s *Server) handleWeeklyRankings(c *fiber.Ctx) error {
	q := query.GetRankingsQuery{Kind: query.RankingWeekly, Limit: c.QueryInt("limit", 0)}
	if v := c.Query("date"); v != "" {
		day, err := s.parseDate(v)
		if err != nil {
			return err
		}
		q.WeekOf = day
	}
	return s.ranking(c, q)
}

// handleStageRankings handles GET /api/v1/rankings/stages/:id
func (s *Server) handleStageRankings(c *fiber.Ctx) error {
	return s.ranking(c, query.GetRankingsQuery{
		Kind:    query.RankingStage,
		StageID: c.Params("id"),
		Limit:   c.QueryInt("limit", 0),
	})
}

func (s *Server) ranking(c *fiber.Ctx, q query.GetRankingsQuery) error {
	if q.Limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	ranking, err := s.deps.Rankings.Handle(c.UserContext(), q)
	if err != nil {
		return err
	}
	return ok(c, ranking)
}

// handleExportRankings handles GET /api/v1/rankings/export.xlsx?group=
func (s *Server) handleExportRankings(c *fiber.Ctx) error {
	if s.deps.Export == nil || !s.deps.Features.IsEnabled(config.FeatureXLSXExport) {
		return fiber.NewError(fiber.StatusNotFound, "export is disabled")
	}

	buf, filename, err := s.deps.Export.Build(c.UserContext(), c.Query("group"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
