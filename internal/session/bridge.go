package session

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/socket"
	"github.com/spec-kit/rental-session/internal/state"
	"github.com/spec-kit/rental-session/internal/toast"
)

// bridge turns socket callbacks into state mutations.
type bridge struct {
	store  *state.Store
	toasts *toast.Queue
	logger *zap.Logger
}

func (b *bridge) OnConnect() {
	b.store.SetConnected(context.Background(), true)
}

func (b *bridge) OnDisconnect(reason string) {
	b.logger.Debug("socket disconnect", zap.String("reason", reason))
	b.store.SetConnected(context.Background(), false)
}

func (b *bridge) OnConnectError(message string) {
	ctx := context.Background()
	b.store.SetConnectionError(ctx, message)
	b.store.IncrementReconnectAttempts(ctx)
}

func (b *bridge) OnError(message string) {
	b.store.SetConnectionError(context.Background(), message)
}

func (b *bridge) OnReset() {
	b.store.ResetSocket(context.Background())
}

func (b *bridge) OnEvent(name string, data json.RawMessage) {
	ctx := context.Background()
	switch name {
	case socket.EventNotification:
		var n domain.Notification
		if !b.decode(name, data, &n) {
			return
		}
		b.store.AddNotification(ctx, n)
		if b.toasts != nil {
			b.toasts.Info(n.Title, n.Message)
		}
	case socket.EventNotificationUpdated:
		var n domain.Notification
		if b.decode(name, data, &n) {
			b.store.UpdateNotification(ctx, n)
		}
	case socket.EventNotificationDeleted:
		var ref struct {
			ID int64 `json:"id"`
		}
		if b.decode(name, data, &ref) {
			b.store.RemoveNotification(ctx, ref.ID)
		}
	default:
		b.logger.Debug("unhandled socket event", zap.String("event", name))
	}
}

func (b *bridge) decode(name string, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		b.logger.Warn("malformed socket event", zap.String("event", name), zap.Error(err))
		return false
	}
	return true
}
