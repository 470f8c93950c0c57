// Package notification holds the messages members read in the app: club
// wide announcements, direct messages and due-date reminders.
package notification

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// KIND
// ══════════════════════════════════════════════════════════════════════════════

// Kind classifies a notification.
type Kind string

const (
	// KindGeneral is broadcast to every member and has no recipient.
	KindGeneral Kind = "general"
	// KindPrivate is addressed to one member.
	KindPrivate Kind = "private"
	// KindDueReminder is sent automatically before an assignment is due.
	KindDueReminder Kind = "due_reminder"
)

// IsValid checks the kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindGeneral, KindPrivate, KindDueReminder:
		return true
	default:
		return false
	}
}

// IsAddressed reports whether the kind targets a single member.
func (k Kind) IsAddressed() bool {
	return k == KindPrivate || k == KindDueReminder
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Notification is a stored message.
type Notification struct {
	ID   string
	Kind Kind

	// RecipientID is the member id for addressed kinds, empty for general.
	RecipientID string

	// AssignmentID is set for due reminders.
	AssignmentID string

	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// NewNotificationParams holds the fields of a new notification.
type NewNotificationParams struct {
	ID           string
	Kind         Kind
	RecipientID  string
	AssignmentID string
	Title        string
	Message      string
	CreatedAt    time.Time
}

// NewNotification validates and normalizes a notification.
func NewNotification(p NewNotificationParams) (*Notification, error) {
	n := &Notification{
		ID:           p.ID,
		Kind:         p.Kind,
		RecipientID:  p.RecipientID,
		AssignmentID: p.AssignmentID,
		Title:        strings.TrimSpace(p.Title),
		Message:      strings.TrimSpace(p.Message),
		CreatedAt:    p.CreatedAt,
	}
	if err := n.Normalize(); err != nil {
		return nil, err
	}
	return n, nil
}

// Normalize enforces the kind rules. General notifications lose any
// recipient and are never marked read.
func (n *Notification) Normalize() error {
	if n.ID == "" {
		return shared.NewDomainError("notification", "Validate", shared.ErrInvalidID, "notification id is required")
	}
	if !n.Kind.IsValid() {
		return shared.ErrInvalidNotifyKind
	}
	if n.Title == "" && n.Message == "" {
		return shared.NewDomainError("notification", "Validate", shared.ErrEmptyValue, "title or message is required")
	}

	switch {
	case n.Kind == KindGeneral:
		n.RecipientID = ""
		n.IsRead = false
	case n.RecipientID == "":
		return shared.ErrRecipientRequired
	}
	return nil
}

// MarkRead marks an addressed notification as read by its recipient.
func (n *Notification) MarkRead(memberID string) error {
	if !n.Kind.IsAddressed() {
		return shared.NewDomainError("notification", "MarkRead", shared.ErrInvalidState, "general notifications cannot be marked read")
	}
	if n.RecipientID != memberID {
		return shared.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

// VisibleTo reports whether memberID sees the notification.
func (n *Notification) VisibleTo(memberID string) bool {
	return n.Kind == KindGeneral || n.RecipientID == memberID
}

// SortForInbox orders unread first, then newest first.
func SortForInbox(list []*Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsRead != list[j].IsRead {
			return !list[i].IsRead
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// Repository persists notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error

	// GetByID returns ErrNotificationNotFound when the row does not exist.
	GetByID(ctx context.Context, id string) (*Notification, error)

	Update(ctx context.Context, n *Notification) error

	// ListForMember returns the member's addressed notifications plus every
	// general one, unread first then newest.
	ListForMember(ctx context.Context, memberID string) ([]*Notification, error)

	// CountUnread counts unread addressed notifications of the member.
	CountUnread(ctx context.Context, memberID string) (int, error)

	// ReminderExists reports whether a due reminder was already stored.
	ReminderExists(ctx context.Context, memberID, assignmentID string) (bool, error)
}
