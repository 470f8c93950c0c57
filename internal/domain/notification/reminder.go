package notification

import (
	"fmt"
	"time"

	"github.com/mahdygh/bookclub/pkg/timeutil"
)

// ReminderWindow returns [from, to) covering the local calendar day that is
// leadDays after now. Pending assignments due inside it get a reminder.
func ReminderWindow(now time.Time, leadDays int, loc *time.Location) (from, to time.Time) {
	from = timeutil.StartOfDay(now, loc).AddDate(0, 0, leadDays)
	to = from.AddDate(0, 0, 1)
	return from, to
}

// DueReminderParams builds the reminder for one assignment.
func DueReminderParams(id, memberID, assignmentID, bookTitle string, due time.Time, penaltyPerDay int, loc *time.Location, now time.Time) NewNotificationParams {
	return NewNotificationParams{
		ID:           id,
		Kind:         KindDueReminder,
		RecipientID:  memberID,
		AssignmentID: assignmentID,
		Title:        "Return reminder",
		Message: fmt.Sprintf(
			"%q is due on %s. Please return it on time: %d points will be deducted for each late day.",
			bookTitle, due.In(loc).Format(timeutil.FormatDate), penaltyPerDay),
		CreatedAt: now,
	}
}
