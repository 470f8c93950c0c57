package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/member"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEMBER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateMember handles POST /api/v1/members
func (s *Server) handleCreateMember(c *fiber.Ctx) error {
	var req createMemberRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	m, err := s.deps.Members.CreateMember(c.UserContext(), command.CreateMemberCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		GroupName: req.GroupName,
		StageID:   req.StageID,
	})
	if err != nil {
		return err
	}
	return created(c, "member created", query.NewMemberDTO(m))
}

// handleListMembers handles GET /api/v1/members?group=&stage_id=&active=
func (s *Server) handleListMembers(c *fiber.Ctx) error {
	members, err := s.deps.Reads.ListMembers(c.UserContext(), member.ListFilter{
		Group:      c.Query("group"),
		StageID:    c.Query("stage_id"),
		ActiveOnly: c.QueryBool("active", false),
	})
	if err != nil {
		return err
	}
	return ok(c, members)
}

// handleGetMember handles GET /api/v1/members/:id
func (s *Server) handleGetMember(c *fiber.Ctx) error {
	m, err := s.deps.Reads.GetMember(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, m)
}

// handleUpdateMember handles PATCH /api/v1/members/:id
func (s *Server) handleUpdateMember(c *fiber.Ctx) error {
	var req updateMemberRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	m, err := s.deps.Members.UpdateMember(c.UserContext(), command.UpdateMemberCommand{
		MemberID:       c.Params("id"),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		GroupName:      req.GroupName,
		CurrentStageID: req.CurrentStageID,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "member updated", query.NewMemberDTO(m))
}

// handleMemberProgress handles GET /api/v1/members/:id/progress
func (s *Server) handleMemberProgress(c *fiber.Ctx) error {
	progress, err := s.deps.MemberProgress.Handle(c.UserContext(), query.GetMemberProgressQuery{
		MemberID: c.Params("id"),
	})
	if err != nil {
		return err
	}
	return ok(c, progress)
}

// handleMemberRank handles GET /api/v1/members/:id/rank
func (s *Server) handleMemberRank(c *fiber.Ctx) error {
	rank, err := s.deps.MemberRank.Handle(c.UserContext(), query.GetMemberRankQuery{
		MemberID: c.Params("id"),
	})
	if err != nil {
		return err
	}
	return ok(c, rank)
}

// handleAvailableBooks handles GET /api/v1/members/:id/available-books
func (s *Server) handleAvailableBooks(c *fiber.Ctx) error {
	books, err := s.deps.AvailableBooks.Handle(c.UserContext(), query.GetAvailableBooksQuery{
		MemberID: c.Params("id"),
	})
	if err != nil {
		return err
	}
	return ok(c, books)
}

// handleAdvanceStage handles POST /api/v1/members/:id/advance
func (s *Server) handleAdvanceStage(c *fiber.Ctx) error {
	res, err := s.deps.AdvanceStage.Handle(c.UserContext(), command.AdvanceStageCommand{
		MemberID: c.Params("id"),
	})
	if err != nil {
		return err
	}
	if !res.Advanced {
		return success(c, fiber.StatusOK, "member stays in the current stage", fiber.Map{"advanced": false})
	}
	return success(c, fiber.StatusOK, "member advanced", fiber.Map{
		"advanced":      true,
		"from_stage_id": res.Advancement.FromStageID,
		"to_stage_id":   res.Advancement.ToStageID,
		"to_stage_name": res.Advancement.ToStageName,
	})
}

// handleCreateAccount handles POST /api/v1/members/:id/account
func (s *Server) handleCreateAccount(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	u, err := s.deps.Members.CreateMemberAccount(c.UserContext(), command.CreateMemberAccountCommand{
		MemberID: c.Params("id"),
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return created(c, "account created", fiber.Map{
		"user_id":   u.ID,
		"username":  u.Username,
		"member_id": c.Params("id"),
	})
}

// handleMemberNotifications handles GET /api/v1/members/:id/notifications?unread=
func (s *Server) handleMemberNotifications(c *fiber.Ctx) error {
	inbox, err := s.deps.Inbox.Handle(c.UserContext(), query.ListNotificationsQuery{
		MemberID:   c.Params("id"),
		UnreadOnly: c.QueryBool("unread", false),
	})
	if err != nil {
		return err
	}
	return ok(c, inbox)
}
