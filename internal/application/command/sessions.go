package command

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION COMMANDS
// Login and logout of already authenticated users. A logout closes the latest
// open session and adds its duration to the daily usage of every local day it
// spans.
// ══════════════════════════════════════════════════════════════════════════════

// SessionHandler handles session commands.
type SessionHandler struct {
	env Env
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(env Env) *SessionHandler {
	return &SessionHandler{env: env.withDefaults()}
}

// RecordLogin opens a session for the user. A zero at means now.
func (h *SessionHandler) RecordLogin(ctx context.Context, userID string, at time.Time) (*activity.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("record_login: %w", invalid("RecordLogin", "user_id is required"))
	}
	if at.IsZero() {
		at = h.env.Now()
	}

	var s *activity.Session
	_, err := h.env.run(ctx, "login", func(ctx context.Context, tx *txn) error {
		if _, err := tx.repos.Accounts.GetByID(ctx, userID); err != nil {
			return err
		}
		var err error
		s, err = activity.NewSession(h.env.NewID(), userID, at)
		if err != nil {
			return err
		}
		return tx.repos.Sessions.Create(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("record_login: %w", err)
	}

	h.env.log(ctx).Debug("session opened", logger.UserID(userID), zap.String("session_id", s.ID))
	return s, nil
}

// RecordLogout closes the user's latest open session. A zero at means now.
func (h *SessionHandler) RecordLogout(ctx context.Context, userID string, at time.Time) (*activity.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("record_logout: %w", invalid("RecordLogout", "user_id is required"))
	}
	if at.IsZero() {
		at = h.env.Now()
	}

	var s *activity.Session
	_, err := h.env.run(ctx, "logout", func(ctx context.Context, tx *txn) error {
		var err error
		s, err = tx.repos.Sessions.LatestOpen(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.Close(at); err != nil {
			return err
		}
		if err := tx.repos.Sessions.Close(ctx, s); err != nil {
			return err
		}

		for _, share := range activity.SplitByDay(s.LoginAt, at, h.env.Rules.Location) {
			if err := tx.repos.Sessions.AddDailyUsage(ctx, userID, share.Date, share.Seconds); err != nil {
				return fmt.Errorf("add daily usage: %w", err)
			}
		}

		tx.emit(shared.NewSessionEndedEvent(s.ID, userID, s.Duration(at)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_logout: %w", err)
	}

	h.env.log(ctx).Debug("session closed",
		logger.UserID(userID),
		zap.Int("duration_seconds", s.DurationSeconds),
	)
	return s, nil
}
