package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// NotificationRepository implements notification.Repository for PostgreSQL.
type NotificationRepository struct {
	q Querier
}

const notificationColumns = `id, kind, recipient_id, assignment_id, title, message, is_read, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n            notification.Notification
		kind         string
		recipientID  *string
		assignmentID *string
	)
	if err := row.Scan(&n.ID, &kind, &recipientID, &assignmentID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Kind = notification.Kind(kind)
	n.RecipientID = derefString(recipientID)
	n.AssignmentID = derefString(assignmentID)
	return &n, nil
}

// Create stores a notification. A second due reminder for the same
// assignment hits the partial unique index.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, string(n.Kind), nullString(n.RecipientID), nullString(n.AssignmentID),
		n.Title, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("notification", "Create", shared.ErrAlreadyExists, "notification already exists")
		}
		if IsForeignKeyViolation(err) {
			return shared.NewDomainError("notification", "Create", shared.ErrNotFound, "recipient or assignment not found")
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID returns a notification by ID.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	n, err := scanNotification(r.q.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// Update saves the read flag and text.
func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE notifications SET title = $2, message = $3, is_read = $4 WHERE id = $1
	`, n.ID, n.Title, n.Message, n.IsRead)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotificationNotFound
	}
	return nil
}

// ListForMember returns the member's addressed notifications plus every
// general one, unread first then newest.
func (r *NotificationRepository) ListForMember(ctx context.Context, memberID string) ([]*notification.Notification, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE kind = 'general' OR recipient_id = $1
		ORDER BY is_read, created_at DESC, id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread counts unread addressed notifications of the member.
func (r *NotificationRepository) CountUnread(ctx context.Context, memberID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND kind <> 'general' AND NOT is_read
	`, memberID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// ReminderExists reports whether a due reminder was already stored.
func (r *NotificationRepository) ReminderExists(ctx context.Context, memberID, assignmentID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE kind = 'due_reminder' AND recipient_id = $1 AND assignment_id = $2
		)
	`, memberID, assignmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reminder: %w", err)
	}
	return exists, nil
}

var _ notification.Repository = (*NotificationRepository)(nil)
