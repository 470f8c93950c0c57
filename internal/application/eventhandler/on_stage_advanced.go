package eventhandler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/application/command"
	"github.com/mahdygh/bookclub/internal/domain/notification"
	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON STAGE ADVANCED HANDLER
// Congratulates a member with a private notification when they move to the
// next stage.
// ═══════════════════════════════════════════════════════════════════════════

// Notifier sends manual notifications.
type Notifier interface {
	Send(ctx context.Context, cmd command.SendNotificationCommand) (*notification.Notification, error)
}

// OnStageAdvancedHandler notifies members about stage advancement.
type OnStageAdvancedHandler struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
}

// NewOnStageAdvancedHandler creates a new OnStageAdvancedHandler.
func NewOnStageAdvancedHandler(notifier Notifier, log *zap.Logger) *OnStageAdvancedHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OnStageAdvancedHandler{
		notifier: notifier,
		logger:   log.With(zap.String("handler", "on_stage_advanced")),
		timeout:  5 * time.Second,
	}
}

// Handle implements shared.EventHandler.
func (h *OnStageAdvancedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.StageAdvancedEvent)
	if !ok {
		h.logger.Debug("ignoring event", logger.EventType(string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	n, err := h.notifier.Send(ctx, command.SendNotificationCommand{
		Kind:        notification.KindPrivate,
		RecipientID: e.AggregateID(),
		Title:       "New stage unlocked",
		Message:     stageMessage(e.ToStageName),
	})
	if err != nil {
		h.logger.Error("failed to send stage notification",
			logger.MemberID(e.AggregateID()),
			zap.String("to_stage_id", e.ToStageID),
			zap.Error(err),
		)
		return fmt.Errorf("on_stage_advanced: %w", err)
	}

	h.logger.Info("stage notification sent",
		logger.MemberID(e.AggregateID()),
		zap.String("notification_id", n.ID),
	)
	return nil
}

func stageMessage(stageName string) string {
	if stageName == "" {
		return "You completed every book of your stage and moved on. Keep reading!"
	}
	return fmt.Sprintf("You completed every book of your stage and moved on to %q. Keep reading!", stageName)
}

// EventType returns the event this handler subscribes to.
func (h *OnStageAdvancedHandler) EventType() shared.EventType {
	return shared.EventMemberStageAdvanced
}
