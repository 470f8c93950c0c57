package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION COMMANDS
// Club announcements, direct messages and the daily due-date reminders.
// ══════════════════════════════════════════════════════════════════════════════

// NotificationHandler handles notification commands.
type NotificationHandler struct {
	env Env

	// leadDays is how many days before the due date reminders go out.
	leadDays int
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(env Env, reminderLeadDays int) *NotificationHandler {
	if reminderLeadDays < 0 {
		reminderLeadDays = 0
	}
	return &NotificationHandler{env: env.withDefaults(), leadDays: reminderLeadDays}
}

// SendNotificationCommand contains a manual notification.
type SendNotificationCommand struct {
	Kind        notification.Kind
	RecipientID string
	Title       string
	Message     string
}

// Send stores a general or private notification. Due reminders are only
// created by SendDueReminders.
func (h *NotificationHandler) Send(ctx context.Context, cmd SendNotificationCommand) (*notification.Notification, error) {
	if cmd.Kind == notification.KindDueReminder {
		return nil, fmt.Errorf("send_notification: %w", shared.ErrInvalidNotifyKind)
	}

	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:          h.env.NewID(),
		Kind:        cmd.Kind,
		RecipientID: cmd.RecipientID,
		Title:       cmd.Title,
		Message:     cmd.Message,
		CreatedAt:   h.env.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("send_notification: %w", err)
	}

	_, err = h.env.run(ctx, "notify", func(ctx context.Context, tx *txn) error {
		if n.Kind.IsAddressed() {
			if _, err := tx.repos.Members.GetByID(ctx, n.RecipientID); err != nil {
				return err
			}
		}
		if err := tx.repos.Notifications.Create(ctx, n); err != nil {
			return err
		}
		tx.emit(shared.NewNotificationCreatedEvent(n.ID, string(n.Kind), n.RecipientID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("send_notification: %w", err)
	}
	return n, nil
}

// MarkRead marks an addressed notification as read by its recipient.
func (h *NotificationHandler) MarkRead(ctx context.Context, notificationID, memberID string) (*notification.Notification, error) {
	if notificationID == "" || memberID == "" {
		return nil, fmt.Errorf("mark_notification_read: %w",
			invalid("MarkNotificationRead", "notification_id and member_id are required"))
	}

	var n *notification.Notification
	_, err := h.env.run(ctx, "mark_read", func(ctx context.Context, tx *txn) error {
		var err error
		n, err = tx.repos.Notifications.GetByID(ctx, notificationID)
		if err != nil {
			return err
		}
		if err := n.MarkRead(memberID); err != nil {
			return err
		}
		return tx.repos.Notifications.Update(ctx, n)
	})
	if err != nil {
		return nil, fmt.Errorf("mark_notification_read: %w", err)
	}
	return n, nil
}

// SendDueRemindersResult reports one reminder run.
type SendDueRemindersResult struct {
	// Candidates is the number of pending assignments due in the window.
	Candidates int

	// Sent is the number of reminders created.
	Sent int

	Events []shared.Event
}

// SendDueReminders creates one due_reminder per pending assignment due on the
// local day leadDays after today, for active members. Running it twice on the
// same day sends nothing new.
func (h *NotificationHandler) SendDueReminders(ctx context.Context) (*SendDueRemindersResult, error) {
	now := h.env.Now()
	loc := h.env.Rules.Location
	from, to := notification.ReminderWindow(now, h.leadDays, loc)

	result := &SendDueRemindersResult{}
	events, err := h.env.run(ctx, "due_reminders", func(ctx context.Context, tx *txn) error {
		result.Candidates, result.Sent = 0, 0

		due, err := tx.repos.Assignments.ListPendingDueBetween(ctx, from, to)
		if err != nil {
			return fmt.Errorf("list due assignments: %w", err)
		}
		result.Candidates = len(due)

		for _, a := range due {
			m, err := tx.repos.Members.GetByID(ctx, a.MemberID)
			if err != nil {
				if shared.IsNotFound(err) {
					continue
				}
				return err
			}
			if !m.IsActive {
				continue
			}

			exists, err := tx.repos.Notifications.ReminderExists(ctx, a.MemberID, a.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			b, err := tx.repos.Books.GetByID(ctx, a.BookID)
			if err != nil {
				return err
			}

			n, err := notification.NewNotification(notification.DueReminderParams(
				h.env.NewID(), a.MemberID, a.ID, b.Title, a.DueDate,
				h.env.Rules.PenaltyPerLateDay, loc, now))
			if err != nil {
				return err
			}
			if err := tx.repos.Notifications.Create(ctx, n); err != nil {
				return err
			}
			tx.emit(shared.NewNotificationCreatedEvent(n.ID, string(n.Kind), n.RecipientID))
			result.Sent++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("send_due_reminders: %w", err)
	}
	result.Events = events

	if result.Sent > 0 {
		h.env.log(ctx).Info("due reminders sent",
			zap.Int("candidates", result.Candidates),
			zap.Int("sent", result.Sent),
			zap.Time("window_from", from),
		)
	}
	return result, nil
}
