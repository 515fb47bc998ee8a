package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/socket"
)

// Pusher delivers a frame to every socket a user has open.
type Pusher interface {
	Push(userID int64, frame socket.Frame)
}

// StartNotificationWorker registers handlers that turn notification lifecycle
// events into socket event frames.
func StartNotificationWorker(dispatcher events.Dispatcher, pusher Pusher, logger *zap.Logger) {
	if dispatcher == nil || pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	forward := func(name string, userID int64, data any) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		pusher.Push(userID, socket.Frame{Type: socket.FrameEvent, Event: name, Data: raw})
		logger.Debug("notification pushed", zap.String("event", name), zap.Int64("user_id", userID))
		return nil
	}

	dispatcher.Subscribe(events.EventNotificationCreated, func(_ context.Context, e events.Event) error {
		p, ok := e.Payload.(events.NotificationPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		return forward(socket.EventNotification, p.UserID, p.Notification)
	})
	dispatcher.Subscribe(events.EventNotificationUpdated, func(_ context.Context, e events.Event) error {
		p, ok := e.Payload.(events.NotificationPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		return forward(socket.EventNotificationUpdated, p.UserID, p.Notification)
	})
	dispatcher.Subscribe(events.EventNotificationDeleted, func(_ context.Context, e events.Event) error {
		p, ok := e.Payload.(events.NotificationDeletedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		return forward(socket.EventNotificationDeleted, p.UserID, map[string]int64{"id": p.NotificationID})
	})
}
