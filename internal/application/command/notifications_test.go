package command_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

func TestSendNotification_KindRules(t *testing.T) {
	f := newFixture(t)
	f.stages()
	m := f.member("Sara")
	h := command.NewNotificationHandler(f.env(), 2)

	general, err := h.Send(f.ctx, command.SendNotificationCommand{
		Kind:        notification.KindGeneral,
		RecipientID: m.ID,
		Title:       "Club meeting",
		Message:     "Friday at five",
	})
	require.NoError(t, err)
	assert.Empty(t, general.RecipientID)

	_, err = h.Send(f.ctx, command.SendNotificationCommand{Kind: notification.KindPrivate, Title: "Hi"})
	assert.ErrorIs(t, err, shared.ErrRecipientRequired)

	_, err = h.Send(f.ctx, command.SendNotificationCommand{Kind: notification.KindPrivate, RecipientID: "nobody", Title: "Hi"})
	assert.ErrorIs(t, err, shared.ErrMemberNotFound)

	_, err = h.Send(f.ctx, command.SendNotificationCommand{Kind: notification.KindDueReminder, RecipientID: m.ID, Title: "Hi"})
	assert.ErrorIs(t, err, shared.ErrInvalidNotifyKind)

	private, err := h.Send(f.ctx, command.SendNotificationCommand{Kind: notification.KindPrivate, RecipientID: m.ID, Title: "Well done"})
	require.NoError(t, err)

	_, err = h.MarkRead(f.ctx, general.ID, m.ID)
	assert.True(t, shared.IsInvalidState(err))

	_, err = h.MarkRead(f.ctx, private.ID, "someone-else")
	assert.True(t, shared.IsNotFound(err))

	read, err := h.MarkRead(f.ctx, private.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	unread, err := f.store.Repositories().Notifications.CountUnread(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
	assert.Equal(t, 2, f.bus.count(shared.EventNotificationCreated))
}

func TestSendDueReminders_OncePerAssignment(t *testing.T) {
	f := newFixture(t)
	s1, _ := f.stages()
	dueSoon := f.book(s1.ID, 20, 10, 2, 3)
	dueLater := f.book(s1.ID, 20, 10, 9, 3)
	m := f.member("Sara")
	inactive := f.member("Ali")

	// Assigned now with two reading days: due on the local day two days ahead.
	a := f.lend(m.ID, dueSoon.ID, f.now)
	f.lend(m.ID, dueLater.ID, f.now)
	f.lend(inactive.ID, dueSoon.ID, f.now)
	_, err := f.members().UpdateMember(f.ctx, command.UpdateMemberCommand{MemberID: inactive.ID, IsActive: ptr(false)})
	require.NoError(t, err)

	h := command.NewNotificationHandler(f.env(), 2)

	res, err := h.SendDueReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Sent)

	list, err := f.store.Repositories().Notifications.ListForMember(f.ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notification.KindDueReminder, list[0].Kind)
	assert.Equal(t, a.ID, list[0].AssignmentID)
	assert.Contains(t, list[0].Message, "2 points will be deducted for each late day")

	again, err := h.SendDueReminders(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Sent)
}

func TestSessions_LogoutSplitsUsageAcrossDays(t *testing.T) {
	f := newFixture(t)
	f.stages()
	m := f.member("Sara")

	u, err := f.members().CreateMemberAccount(f.ctx, command.CreateMemberAccountCommand{
		MemberID: m.ID,
		Username: "Sara.R",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "sara.r", u.Username)
	assert.True(t, u.CheckPassword("correct horse"))

	_, err = f.members().CreateMemberAccount(f.ctx, command.CreateMemberAccountCommand{
		MemberID: m.ID, Username: "another", Password: "correct horse",
	})
	assert.ErrorIs(t, err, shared.ErrMemberAlreadyLinked)

	h := command.NewSessionHandler(f.env())
	login := time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC)
	logout := time.Date(2024, 3, 13, 1, 15, 0, 0, time.UTC)

	_, err = h.RecordLogin(f.ctx, u.ID, login)
	require.NoError(t, err)

	s, err := h.RecordLogout(f.ctx, u.ID, logout)
	require.NoError(t, err)
	assert.Equal(t, 6300, s.DurationSeconds)

	usage, err := f.store.Repositories().Sessions.ListDailyUsage(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, 4500, usage[0].Seconds)
	assert.Equal(t, 1800, usage[1].Seconds)

	_, err = h.RecordLogout(f.ctx, u.ID, logout)
	assert.ErrorIs(t, err, shared.ErrNoOpenSession)

	_, err = h.RecordLogin(f.ctx, "unknown", login)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestCreateMemberAccount_UsernameTaken(t *testing.T) {
	f := newFixture(t)
	f.stages()
	m1 := f.member("Sara")
	m2 := f.member("Ali")

	_, err := f.members().CreateMemberAccount(f.ctx, command.CreateMemberAccountCommand{MemberID: m1.ID, Username: "reader", Password: "password1"})
	require.NoError(t, err)

	_, err = f.members().CreateMemberAccount(f.ctx, command.CreateMemberAccountCommand{MemberID: m2.ID, Username: "READER", Password: "password1"})
	assert.ErrorIs(t, err, shared.ErrUsernameTaken)

	_, err = f.members().CreateMemberAccount(f.ctx, command.CreateMemberAccountCommand{MemberID: m2.ID, Username: "short", Password: "1234"})
	assert.ErrorIs(t, err, shared.ErrWeakPassword)

	got, err := f.store.Repositories().Members.GetByID(f.ctx, m2.ID)
	require.NoError(t, err)
	assert.False(t, got.HasAccount())
}
