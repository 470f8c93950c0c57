package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/assignment"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// advancementJSON renders an optional stage advancement.
func advancementJSON(a *command.Advancement) fiber.Map {
	if a == nil {
		return nil
	}
	return fiber.Map{
		"from_stage_id": a.FromStageID,
		"to_stage_id":   a.ToStageID,
		"to_stage_name": a.ToStageName,
	}
}

// handleCreateAssignment handles POST /api/v1/assignments
func (s *Server) handleCreateAssignment(c *fiber.Ctx) error {
	var req createAssignmentRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.CreateAssignment.Handle(c.UserContext(), command.CreateAssignmentCommand{
		MemberID:     req.MemberID,
		BookID:       req.BookID,
		AssignedDate: timeOrZero(req.AssignedDate),
		DueDate:      timeOrZero(req.DueDate),
		ReturnedDate: req.ReturnedDate,
		QuizScore:    req.QuizScore,
		PagesRead:    req.PagesRead,
		Notes:        req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, "assignment created", fiber.Map{
		"assignment":  query.NewAssignmentDTO(res.Assignment),
		"advancement": advancementJSON(res.Advancement),
	})
}

// handleListAssignments handles GET /api/v1/assignments?member_id=&book_id=&status=
func (s *Server) handleListAssignments(c *fiber.Ctx) error {
	list, err := s.deps.Reads.ListAssignments(c.UserContext(), assignment.Filter{
		MemberID: c.Query("member_id"),
		BookID:   c.Query("book_id"),
		Status:   assignment.Status(c.Query("status")),
	})
	if err != nil {
		return err
	}
	return ok(c, list)
}

// handleGetAssignment handles GET /api/v1/assignments/:id
func (s *Server) handleGetAssignment(c *fiber.Ctx) error {
	a, err := s.deps.Reads.GetAssignment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, a)
}

// handleUpdateAssignment handles PATCH /api/v1/assignments/:id
func (s *Server) handleUpdateAssignment(c *fiber.Ctx) error {
	var req updateAssignmentRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.UpdateAssignment.Handle(c.UserContext(), command.UpdateAssignmentCommand{
		AssignmentID:  c.Params("id"),
		MemberID:      req.MemberID,
		BookID:        req.BookID,
		AssignedDate:  req.AssignedDate,
		DueDate:       req.DueDate,
		ReturnedDate:  req.ReturnedDate,
		ClearReturned: req.ClearReturned,
		QuizScore:     req.QuizScore,
		PagesRead:     req.PagesRead,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "assignment updated", fiber.Map{
		"assignment":  query.NewAssignmentDTO(res.Assignment),
		"advancement": advancementJSON(res.Advancement),
	})
}

// handleDeleteAssignment handles DELETE /api/v1/assignments/:id
func (s *Server) handleDeleteAssignment(c *fiber.Ctx) error {
	res, err := s.deps.DeleteAssignment.Handle(c.UserContext(), command.DeleteAssignmentCommand{
		AssignmentID: c.Params("id"),
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "assignment deleted", fiber.Map{
		"member_id":       res.Reversed.MemberID,
		"reversed_points": res.Reversed.Total,
	})
}

// handleCompleteAssignment handles POST /api/v1/assignments/:id/complete
func (s *Server) handleCompleteAssignment(c *fiber.Ctx) error {
	var req completeAssignmentRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.CompleteAssignment.Handle(c.UserContext(), command.CompleteAssignmentCommand{
		AssignmentID: c.Params("id"),
		ReturnedDate: timeOrZero(req.ReturnedDate),
		QuizScore:    req.QuizScore,
		Notes:        req.Notes,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "assignment completed", fiber.Map{
		"assignment":  query.NewAssignmentDTO(res.Assignment),
		"late_days":   res.Completion.LateDays,
		"earned":      res.Completion.Scores.Total(),
		"advancement": advancementJSON(res.Advancement),
	})
}

// handleNormalizeReturned handles POST /api/v1/admin/normalize-returned
func (s *Server) handleNormalizeReturned(c *fiber.Ctx) error {
	res, err := s.deps.NormalizeReturned.Handle(c.UserContext(), command.NormalizeReturnedCommand{})
	if err != nil {
		return err
	}

	failures := make([]fiber.Map, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, fiber.Map{"assignment_id": f.AssignmentID, "error": f.Err.Error()})
	}
	return success(c, fiber.StatusOK, "returns normalized", fiber.Map{
		"scanned":  res.Scanned,
		"settled":  res.Settled,
		"demoted":  res.Demoted,
		"skipped":  res.Skipped,
		"failures": failures,
	})
}
