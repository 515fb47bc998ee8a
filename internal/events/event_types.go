package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/rental-session/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// Client-side state changes.
	EventAuthChanged          EventType = "auth_changed"
	EventSocketChanged        EventType = "socket_changed"
	EventNotificationsChanged EventType = "notifications_changed"
	EventPreferencesChanged   EventType = "preferences_changed"

	// Backend notification lifecycle, fanned out to socket subscribers.
	EventNotificationCreated EventType = "notification_created"
	EventNotificationUpdated EventType = "notification_updated"
	EventNotificationDeleted EventType = "notification_deleted"
)

// Event represents a change emitted by the state store or the mock backend.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// NotificationPayload carries one notification addressed to UserID.
type NotificationPayload struct {
	UserID       int64               `json:"user_id"`
	Notification domain.Notification `json:"notification"`
}

// NotificationDeletedPayload identifies a removed notification.
type NotificationDeletedPayload struct {
	UserID         int64 `json:"user_id"`
	NotificationID int64 `json:"notification_id"`
}
