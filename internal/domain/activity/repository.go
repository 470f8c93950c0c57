package activity

import (
	"context"
	"time"
)

// SessionRepository persists login sessions and daily usage.
type SessionRepository interface {
	// Create stores a new open session.
	Create(ctx context.Context, s *Session) error

	// LatestOpen returns the most recent open session of the user, or
	// ErrNoOpenSession.
	LatestOpen(ctx context.Context, userID string) (*Session, error)

	// Close saves logout_at and duration_seconds.
	Close(ctx context.Context, s *Session) error

	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Session, error)

	// AddDailyUsage increments the usage row of (user, date), creating it
	// when missing.
	AddDailyUsage(ctx context.Context, userID string, date time.Time, seconds int) error

	// ListDailyUsage returns the user's usage rows, newest date first.
	ListDailyUsage(ctx context.Context, userID string) ([]*DailyUsage, error)
}
