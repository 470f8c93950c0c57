package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD & STAGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreatePeriod handles POST /api/v1/periods
func (s *Server) handleCreatePeriod(c *fiber.Ctx) error {
	var req createPeriodRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	start, err := s.parseDate(req.StartDate)
	if err != nil {
		return err
	}
	end, err := s.parseDate(req.EndDate)
	if err != nil {
		return err
	}

	p, err := s.deps.Catalog.CreatePeriod(c.UserContext(), command.CreatePeriodCommand{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		Activate:    req.Activate,
	})
	if err != nil {
		return err
	}
	return created(c, "period created", query.NewPeriodDTO(p, s.deps.Location))
}

// handleListPeriods handles GET /api/v1/periods
func (s *Server) handleListPeriods(c *fiber.Ctx) error {
	periods, err := s.deps.Reads.ListPeriods(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, periods)
}

// handleActivatePeriod handles POST /api/v1/periods/:id/activate
func (s *Server) handleActivatePeriod(c *fiber.Ctx) error {
	p, err := s.deps.Catalog.ActivatePeriod(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "period activated", query.NewPeriodDTO(p, s.deps.Location))
}

// handleCreateStage handles POST /api/v1/periods/:id/stages
func (s *Server) handleCreateStage(c *fiber.Ctx) error {
	var req createStageRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	st, err := s.deps.Catalog.CreateStage(c.UserContext(), command.CreateStageCommand{
		PeriodID:    c.Params("id"),
		StageNumber: req.StageNumber,
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		return err
	}
	return created(c, "stage created", query.NewStageDTO(st))
}

// handleListStages handles GET /api/v1/periods/:id/stages
func (s *Server) handleListStages(c *fiber.Ctx) error {
	stages, err := s.deps.Reads.ListStages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, stages)
}

// ══════════════════════════════════════════════════════════════════════════════
// BOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateBook handles POST /api/v1/books
func (s *Server) handleCreateBook(c *fiber.Ctx) error {
	var req createBookRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	b, err := s.deps.Catalog.CreateBook(c.UserContext(), command.CreateBookCommand{
		StageID:      req.StageID,
		Title:        req.Title,
		Author:       req.Author,
		Description:  req.Description,
		ReadingScore: req.ReadingScore,
		QuizScore:    req.QuizScore,
		ReadingDays:  req.ReadingDays,
		PageCount:    req.PageCount,
		StockCount:   req.StockCount,
	})
	if err != nil {
		return err
	}
	return created(c, "book created", query.NewBookDTO(b))
}

// handleListBooks handles GET /api/v1/books?stage_id=
func (s *Server) handleListBooks(c *fiber.Ctx) error {
	books, err := s.deps.Reads.ListBooks(c.UserContext(), c.Query("stage_id"))
	if err != nil {
		return err
	}
	return ok(c, books)
}

// handleGetBook handles GET /api/v1/books/:id
func (s *Server) handleGetBook(c *fiber.Ctx) error {
	b, err := s.deps.Reads.GetBook(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, b)
}

// handleUpdateBook handles PATCH /api/v1/books/:id. Score changes rescale
// every completed assignment of the book.
func (s *Server) handleUpdateBook(c *fiber.Ctx) error {
	var req updateBookRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.Catalog.UpdateBook(c.UserContext(), command.UpdateBookCommand{
		BookID:       c.Params("id"),
		StageID:      req.StageID,
		Title:        req.Title,
		Author:       req.Author,
		Description:  req.Description,
		ReadingScore: req.ReadingScore,
		QuizScore:    req.QuizScore,
		ReadingDays:  req.ReadingDays,
		PageCount:    req.PageCount,
		StockCount:   req.StockCount,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "book updated", fiber.Map{
		"book":     query.NewBookDTO(res.Book),
		"rescaled": res.Rescaled,
	})
}

// handleChangeBookScore handles PUT /api/v1/books/:id/scores
func (s *Server) handleChangeBookScore(c *fiber.Ctx) error {
	var req changeBookScoreRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.ChangeBookScore.Handle(c.UserContext(), command.ChangeBookScoreCommand{
		BookID:       c.Params("id"),
		ReadingScore: req.ReadingScore,
		QuizScore:    req.QuizScore,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "book scores changed", fiber.Map{
		"book":     query.NewBookDTO(res.Book),
		"rescaled": res.Rescaled,
		"delta":    res.Delta,
	})
}
