package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published only after the unit of work that
// produced them has committed.
const (
	// Assignment events
	EventAssignmentCreated   EventType = "assignment.created"
	EventAssignmentCompleted EventType = "assignment.completed"
	EventAssignmentReopened  EventType = "assignment.reopened"
	EventAssignmentDeleted   EventType = "assignment.deleted"
	EventReturnsNormalized   EventType = "assignment.returns_normalized"

	// Score events
	EventScoreChanged       EventType = "score.changed"
	EventWeeklyScoreChanged EventType = "score.weekly_changed"
	EventBookScoresChanged  EventType = "book.scores_changed"

	// Member events
	EventMemberStageAdvanced EventType = "member.stage_advanced"

	// Notification events
	EventNotificationCreated EventType = "notification.created"

	// Activity events
	EventSessionEnded EventType = "activity.session_ended"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Assignment Events
// ═══════════════════════════════════════════════════════════════════════════

// AssignmentCompletedEvent is emitted when a pending assignment is settled.
type AssignmentCompletedEvent struct {
	BaseEvent
	MemberID     string    `json:"member_id"`
	BookID       string    `json:"book_id"`
	ReturnedDate time.Time `json:"returned_date"`
	LateDays     int       `json:"late_days"`
	Earned       int       `json:"earned"`
}

// Payload implements Event interface.
func (e AssignmentCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id":     e.MemberID,
		"book_id":       e.BookID,
		"returned_date": e.ReturnedDate,
		"late_days":     e.LateDays,
		"earned":        e.Earned,
	}
}

// NewAssignmentCompletedEvent creates a new AssignmentCompletedEvent.
func NewAssignmentCompletedEvent(assignmentID, memberID, bookID string, returned time.Time, lateDays, earned int) AssignmentCompletedEvent {
	return AssignmentCompletedEvent{
		BaseEvent:    NewBaseEvent(EventAssignmentCompleted, assignmentID),
		MemberID:     memberID,
		BookID:       bookID,
		ReturnedDate: returned,
		LateDays:     lateDays,
		Earned:       earned,
	}
}

// AssignmentLifecycleEvent covers creation, reopening and deletion, which
// only carry the owning member and book.
type AssignmentLifecycleEvent struct {
	BaseEvent
	MemberID string `json:"member_id"`
	BookID   string `json:"book_id"`
}

// Payload implements Event interface.
func (e AssignmentLifecycleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id": e.MemberID,
		"book_id":   e.BookID,
	}
}

// NewAssignmentLifecycleEvent creates an assignment event of the given type.
func NewAssignmentLifecycleEvent(eventType EventType, assignmentID, memberID, bookID string) AssignmentLifecycleEvent {
	return AssignmentLifecycleEvent{
		BaseEvent: NewBaseEvent(eventType, assignmentID),
		MemberID:  memberID,
		BookID:    bookID,
	}
}

// ReturnsNormalizedEvent summarises one normalization run.
type ReturnsNormalizedEvent struct {
	BaseEvent
	Scanned int `json:"scanned"`
	Healed  int `json:"healed"`
	Failed  int `json:"failed"`
}

// Payload implements Event interface.
func (e ReturnsNormalizedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"scanned": e.Scanned,
		"healed":  e.Healed,
		"failed":  e.Failed,
	}
}

// NewReturnsNormalizedEvent creates a new ReturnsNormalizedEvent.
func NewReturnsNormalizedEvent(scanned, healed, failed int) ReturnsNormalizedEvent {
	return ReturnsNormalizedEvent{
		BaseEvent: NewBaseEvent(EventReturnsNormalized, "normalize"),
		Scanned:   scanned,
		Healed:    healed,
		Failed:    failed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Events
// ═══════════════════════════════════════════════════════════════════════════

// ScoreChangedEvent is emitted for every ledger movement of a member.
type ScoreChangedEvent struct {
	BaseEvent
	MemberID string `json:"member_id"`
	Delta    int    `json:"delta"`
	NewTotal int    `json:"new_total"`
	Reason   string `json:"reason"` // e.g., "complete", "update", "delete", "rescale"
}

// Payload implements Event interface.
func (e ScoreChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id": e.MemberID,
		"delta":     e.Delta,
		"new_total": e.NewTotal,
		"reason":    e.Reason,
	}
}

// NewScoreChangedEvent creates a new ScoreChangedEvent.
func NewScoreChangedEvent(memberID string, delta, newTotal int, reason string) ScoreChangedEvent {
	return ScoreChangedEvent{
		BaseEvent: NewBaseEvent(EventScoreChanged, memberID),
		MemberID:  memberID,
		Delta:     delta,
		NewTotal:  newTotal,
		Reason:    reason,
	}
}

// WeeklyScoreChangedEvent is emitted for every weekly bucket movement.
type WeeklyScoreChangedEvent struct {
	BaseEvent
	MemberID  string    `json:"member_id"`
	WeekStart time.Time `json:"week_start"`
	Delta     int       `json:"delta"`
	NewScore  int       `json:"new_score"`
}

// Payload implements Event interface.
func (e WeeklyScoreChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id":  e.MemberID,
		"week_start": e.WeekStart,
		"delta":      e.Delta,
		"new_score":  e.NewScore,
	}
}

// NewWeeklyScoreChangedEvent creates a new WeeklyScoreChangedEvent.
func NewWeeklyScoreChangedEvent(memberID string, weekStart time.Time, delta, newScore int) WeeklyScoreChangedEvent {
	return WeeklyScoreChangedEvent{
		BaseEvent: NewBaseEvent(EventWeeklyScoreChanged, memberID),
		MemberID:  memberID,
		WeekStart: weekStart,
		Delta:     delta,
		NewScore:  newScore,
	}
}

// BookScoresChangedEvent is emitted after a book's bases were rescaled.
type BookScoresChangedEvent struct {
	BaseEvent
	ReadingScore int `json:"reading_score"`
	QuizScore    int `json:"quiz_score"`
	Rescaled     int `json:"rescaled"`
}

// Payload implements Event interface.
func (e BookScoresChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reading_score": e.ReadingScore,
		"quiz_score":    e.QuizScore,
		"rescaled":      e.Rescaled,
	}
}

// NewBookScoresChangedEvent creates a new BookScoresChangedEvent.
func NewBookScoresChangedEvent(bookID string, reading, quiz, rescaled int) BookScoresChangedEvent {
	return BookScoresChangedEvent{
		BaseEvent:    NewBaseEvent(EventBookScoresChanged, bookID),
		ReadingScore: reading,
		QuizScore:    quiz,
		Rescaled:     rescaled,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Member Events
// ═══════════════════════════════════════════════════════════════════════════

// StageAdvancedEvent is emitted when a member moves to the next stage.
type StageAdvancedEvent struct {
	BaseEvent
	FromStageID string `json:"from_stage_id"`
	ToStageID   string `json:"to_stage_id"`
	ToStageName string `json:"to_stage_name"`
}

// Payload implements Event interface.
func (e StageAdvancedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"from_stage_id": e.FromStageID,
		"to_stage_id":   e.ToStageID,
		"to_stage_name": e.ToStageName,
	}
}

// NewStageAdvancedEvent creates a new StageAdvancedEvent.
func NewStageAdvancedEvent(memberID, fromStageID, toStageID, toStageName string) StageAdvancedEvent {
	return StageAdvancedEvent{
		BaseEvent:   NewBaseEvent(EventMemberStageAdvanced, memberID),
		FromStageID: fromStageID,
		ToStageID:   toStageID,
		ToStageName: toStageName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification & Activity Events
// ═══════════════════════════════════════════════════════════════════════════

// NotificationCreatedEvent is emitted for every stored notification.
type NotificationCreatedEvent struct {
	BaseEvent
	Kind        string `json:"kind"`
	RecipientID string `json:"recipient_id,omitempty"`
}

// Payload implements Event interface.
func (e NotificationCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"kind":         e.Kind,
		"recipient_id": e.RecipientID,
	}
}

// NewNotificationCreatedEvent creates a new NotificationCreatedEvent.
func NewNotificationCreatedEvent(notificationID, kind, recipientID string) NotificationCreatedEvent {
	return NotificationCreatedEvent{
		BaseEvent:   NewBaseEvent(EventNotificationCreated, notificationID),
		Kind:        kind,
		RecipientID: recipientID,
	}
}

// SessionEndedEvent is emitted when a logout closes a session.
type SessionEndedEvent struct {
	BaseEvent
	UserID   string        `json:"user_id"`
	Duration time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"duration": e.Duration.String(),
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(sessionID, userID string, d time.Duration) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent: NewBaseEvent(EventSessionEnded, sessionID),
		UserID:    userID,
		Duration:  d,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// PublishAll publishes events in order and returns the first error.
func PublishAll(p EventPublisher, events []Event) error {
	if p == nil {
		return nil
	}
	var firstErr error
	for _, e := range events {
		if err := p.Publish(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
