// Package activity contains domain entities and business logic
// for login sessions and the daily usage time derived from them.
// This is a pure domain layer with zero external dependencies.
package activity

import (
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// Session is one login of a user. LogoutAt is nil while the session is open.
type Session struct {
	ID              string
	UserID          string
	LoginAt         time.Time
	LogoutAt        *time.Time
	DurationSeconds int
}

// NewSession opens a session.
func NewSession(id, userID string, loginAt time.Time) (*Session, error) {
	if id == "" || userID == "" {
		return nil, shared.NewDomainError("activity", "StartSession", shared.ErrInvalidID, "session and user ids are required")
	}
	return &Session{
		ID:      id,
		UserID:  userID,
		LoginAt: loginAt,
	}, nil
}

// IsOpen returns true if the session has not been closed.
func (s *Session) IsOpen() bool {
	return s.LogoutAt == nil
}

// Close ends the session and records its duration in whole seconds.
func (s *Session) Close(logoutAt time.Time) error {
	if !s.IsOpen() {
		return shared.NewDomainError("activity", "EndSession", shared.ErrInvalidState, "session already ended")
	}
	if logoutAt.Before(s.LoginAt) {
		return shared.ErrSessionEndBefore
	}
	s.LogoutAt = &logoutAt
	s.DurationSeconds = int(logoutAt.Sub(s.LoginAt) / time.Second)
	return nil
}

// Duration returns the closed duration, or the time open so far at now.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.LogoutAt != nil {
		return time.Duration(s.DurationSeconds) * time.Second
	}
	if now.Before(s.LoginAt) {
		return 0
	}
	return now.Sub(s.LoginAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY USAGE
// ══════════════════════════════════════════════════════════════════════════════

// DailyUsage is the time a user spent logged in on one local calendar day.
// Date is a civil date.
type DailyUsage struct {
	UserID  string
	Date    time.Time
	Seconds int
}

// DayShare is the part of an interval falling on one local day.
type DayShare struct {
	Date    time.Time
	Seconds int
}

// SplitByDay splits [start, end) at local midnights.
func SplitByDay(start, end time.Time, loc *time.Location) []DayShare {
	if !end.After(start) {
		return nil
	}

	var shares []DayShare
	cursor := start
	for cursor.Before(end) {
		next := timeutil.StartOfDay(cursor, loc).AddDate(0, 0, 1)
		if next.After(end) {
			next = end
		}
		if secs := int(next.Sub(cursor) / time.Second); secs > 0 {
			shares = append(shares, DayShare{Date: timeutil.CivilDate(cursor, loc), Seconds: secs})
		}
		cursor = next
	}
	return shares
}

// FormatDuration renders "Xh Ym", or "Zs" when there are no whole minutes.
func FormatDuration(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours == 0 && minutes == 0 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
