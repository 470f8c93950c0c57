package query

import (
	"context"
	"fmt"

	"github.com/mahdygh/bookclub/internal/domain/uow"
)

// ListNotificationsQuery selects the member's inbox.
type ListNotificationsQuery struct {
	MemberID string

	// UnreadOnly drops read notifications.
	UnreadOnly bool
}

// InboxDTO is a member's notifications, unread first then newest.
type InboxDTO struct {
	MemberID      string            `json:"member_id"`
	UnreadCount   int               `json:"unread_count"`
	Notifications []NotificationDTO `json:"notifications"`
}

// ListNotificationsHandler handles ListNotificationsQuery.
type ListNotificationsHandler struct {
	repos uow.Repositories
}

// NewListNotificationsHandler creates a new ListNotificationsHandler.
func NewListNotificationsHandler(repos uow.Repositories) *ListNotificationsHandler {
	return &ListNotificationsHandler{repos: repos}
}

// Handle executes the query. General notifications are included for every
// member but never count as unread.
func (h *ListNotificationsHandler) Handle(ctx context.Context, q ListNotificationsQuery) (*InboxDTO, error) {
	if _, err := h.repos.Members.GetByID(ctx, q.MemberID); err != nil {
		return nil, fmt.Errorf("list_notifications: %w", err)
	}

	list, err := h.repos.Notifications.ListForMember(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("list_notifications: %w", err)
	}
	unread, err := h.repos.Notifications.CountUnread(ctx, q.MemberID)
	if err != nil {
		return nil, fmt.Errorf("list_notifications: count unread: %w", err)
	}

	dto := &InboxDTO{MemberID: q.MemberID, UnreadCount: unread, Notifications: []NotificationDTO{}}
	for _, n := range list {
		if q.UnreadOnly && (n.IsRead || !n.Kind.IsAddressed()) {
			continue
		}
		dto.Notifications = append(dto.Notifications, NewNotificationDTO(n))
	}
	return dto, nil
}
