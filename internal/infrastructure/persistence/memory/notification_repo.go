package memory

import (
	"context"

	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	h *handle
}

func (r *NotificationRepository) Create(_ context.Context, n *notification.Notification) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.notifications[n.ID]; ok {
		return shared.NewDomainError("notification", "Create", shared.ErrAlreadyExists, "notification already exists")
	}
	st.notifications[n.ID] = *n
	return nil
}

func (r *NotificationRepository) GetByID(_ context.Context, id string) (*notification.Notification, error) {
	st, done := r.h.read()
	defer done()

	n, ok := st.notifications[id]
	if !ok {
		return nil, shared.ErrNotificationNotFound
	}
	return &n, nil
}

func (r *NotificationRepository) Update(_ context.Context, n *notification.Notification) error {
	st, done := r.h.write()
	defer done()

	if _, ok := st.notifications[n.ID]; !ok {
		return shared.ErrNotificationNotFound
	}
	st.notifications[n.ID] = *n
	return nil
}

func (r *NotificationRepository) ListForMember(_ context.Context, memberID string) ([]*notification.Notification, error) {
	st, done := r.h.read()
	defer done()

	var out []*notification.Notification
	for _, n := range st.notifications {
		if n.VisibleTo(memberID) {
			out = append(out, &n)
		}
	}
	notification.SortForInbox(out)
	return out, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, memberID string) (int, error) {
	st, done := r.h.read()
	defer done()

	count := 0
	for _, n := range st.notifications {
		if n.Kind.IsAddressed() && n.RecipientID == memberID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) ReminderExists(_ context.Context, memberID, assignmentID string) (bool, error) {
	st, done := r.h.read()
	defer done()

	for _, n := range st.notifications {
		if n.Kind == notification.KindDueReminder && n.RecipientID == memberID && n.AssignmentID == assignmentID {
			return true, nil
		}
	}
	return false, nil
}
