package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/application/query"
	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSendNotification handles POST /api/v1/notifications
func (s *Server) handleSendNotification(c *fiber.Ctx) error {
	var req sendNotificationRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	n, err := s.deps.Notifications.Send(c.UserContext(), command.SendNotificationCommand{
		Kind:        notification.Kind(req.Kind),
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Message:     req.Message,
	})
	if err != nil {
		return err
	}
	return created(c, "notification sent", query.NewNotificationDTO(n))
}

// handleMarkRead handles POST /api/v1/notifications/:id/read?member_id=
func (s *Server) handleMarkRead(c *fiber.Ctx) error {
	memberID := c.Query("member_id")
	if memberID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "member_id is required")
	}

	n, err := s.deps.Notifications.MarkRead(c.UserContext(), c.Params("id"), memberID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "notification marked as read", query.NewNotificationDTO(n))
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type sessionDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	LoginAt         string  `json:"login_at"`
	LogoutAt        *string `json:"logout_at,omitempty"`
	DurationSeconds int     `json:"duration_seconds"`
}

func newSessionDTO(sess *activity.Session) sessionDTO {
	d := sessionDTO{
		ID:              sess.ID,
		UserID:          sess.UserID,
		LoginAt:         sess.LoginAt.UTC().Format(time.RFC3339),
		DurationSeconds: sess.DurationSeconds,
	}
	if sess.LogoutAt != nil {
		out := sess.LogoutAt.UTC().Format(time.RFC3339)
		d.LogoutAt = &out
	}
	return d
}

// handleLogin handles POST /api/v1/sessions/login
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req sessionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	at := s.deps.Now()
	if req.At != nil {
		at = *req.At
	}

	sess, err := s.deps.Sessions.RecordLogin(c.UserContext(), req.UserID, at)
	if err != nil {
		return err
	}
	return created(c, "session opened", newSessionDTO(sess))
}

// handleLogout handles POST /api/v1/sessions/logout
func (s *Server) handleLogout(c *fiber.Ctx) error {
	var req sessionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	at := s.deps.Now()
	if req.At != nil {
		at = *req.At
	}

	sess, err := s.deps.Sessions.RecordLogout(c.UserContext(), req.UserID, at)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "session closed", newSessionDTO(sess))
}

// handleUsage handles GET /api/v1/users/:id/usage
func (s *Server) handleUsage(c *fiber.Ctx) error {
	usage, err := s.deps.Usage.Handle(c.UserContext(), query.GetUsageQuery{UserID: c.Params("id")})
	if err != nil {
		return err
	}
	return ok(c, usage)
}
