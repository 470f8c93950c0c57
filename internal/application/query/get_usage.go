package query

import (
	"context"
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/uow"
	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// GetUsageQuery selects the user.
type GetUsageQuery struct {
	UserID string
}

// DailyUsageDTO is the time spent on one local day.
type DailyUsageDTO struct {
	Date     string `json:"date"`
	Seconds  int    `json:"seconds"`
	Duration string `json:"duration"`
}

// UsageDTO is the total time a user spent logged in.
type UsageDTO struct {
	UserID       string          `json:"user_id"`
	TotalSeconds int             `json:"total_seconds"`
	Duration     string          `json:"duration"`
	Sessions     int             `json:"sessions"`
	Online       bool            `json:"online"`
	Daily        []DailyUsageDTO `json:"daily"`
}

// GetUsageHandler handles GetUsageQuery.
type GetUsageHandler struct {
	repos uow.Repositories
	now   func() time.Time
}

// NewGetUsageHandler creates a new GetUsageHandler.
func NewGetUsageHandler(repos uow.Repositories, now func() time.Time) *GetUsageHandler {
	if now == nil {
		now = time.Now
	}
	return &GetUsageHandler{repos: repos, now: now}
}

// Handle sums closed sessions and the open ones up to now.
func (h *GetUsageHandler) Handle(ctx context.Context, q GetUsageQuery) (*UsageDTO, error) {
	if _, err := h.repos.Accounts.GetByID(ctx, q.UserID); err != nil {
		return nil, fmt.Errorf("get_usage: %w", err)
	}

	sessions, err := h.repos.Sessions.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_usage: %w", err)
	}
	daily, err := h.repos.Sessions.ListDailyUsage(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_usage: daily: %w", err)
	}

	now := h.now()
	var total time.Duration
	dto := &UsageDTO{UserID: q.UserID, Sessions: len(sessions), Daily: []DailyUsageDTO{}}
	for _, s := range sessions {
		total += s.Duration(now)
		if s.IsOpen() {
			dto.Online = true
		}
	}
	dto.TotalSeconds = int(total / time.Second)
	dto.Duration = activity.FormatDuration(total)

	for _, u := range daily {
		d := time.Duration(u.Seconds) * time.Second
		dto.Daily = append(dto.Daily, DailyUsageDTO{
			Date:     timeutil.FormatCivil(u.Date),
			Seconds:  u.Seconds,
			Duration: activity.FormatDuration(d),
		})
	}
	return dto, nil
}
