package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ReminderSender creates due reminders for loans about to expire.
type ReminderSender interface {
	SendDueReminders(ctx context.Context) (*command.SendDueRemindersResult, error)
}

// DueRemindersJob sends the daily due-date reminders.
type DueRemindersJob struct {
	sender  ReminderSender
	enabled func() bool
	logger  *zap.Logger
}

// NewDueRemindersJob creates the job. enabled is checked on every run so the
// feature flag can be flipped without a restart; nil means always on.
func NewDueRemindersJob(sender ReminderSender, enabled func() bool, log *zap.Logger) *DueRemindersJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &DueRemindersJob{
		sender:  sender,
		enabled: enabled,
		logger:  log.With(logger.Job("due_reminders")),
	}
}

func (j *DueRemindersJob) Name() string { return "due_reminders" }

func (j *DueRemindersJob) Description() string {
	return "Reminds members of books due in the reminder window"
}

// Run sends the reminders of today's window.
func (j *DueRemindersJob) Run(ctx context.Context) error {
	if j.enabled != nil && !j.enabled() {
		j.logger.Debug("due reminders disabled")
		return nil
	}

	result, err := j.sender.SendDueReminders(ctx)
	if err != nil {
		return fmt.Errorf("send due reminders: %w", err)
	}

	j.logger.Info("due reminders sent",
		zap.Int("candidates", result.Candidates),
		zap.Int("sent", result.Sent),
	)
	return nil
}
