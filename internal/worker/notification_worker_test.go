package worker_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/socket"
	"github.com/spec-kit/rental-session/internal/worker"
)

type pushed struct {
	userID int64
	frame  socket.Frame
}

type fakePusher struct {
	mu     sync.Mutex
	frames []pushed
}

func (p *fakePusher) Push(userID int64, frame socket.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, pushed{userID: userID, frame: frame})
}

func TestWorkerForwardsLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	pusher := &fakePusher{}
	worker.StartNotificationWorker(dispatcher, pusher, nil)

	n := domain.Notification{ID: 4, UserID: 9, Title: "Return reminder"}
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventNotificationCreated, events.NotificationPayload{UserID: 9, Notification: n})))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventNotificationUpdated, events.NotificationPayload{UserID: 9, Notification: n})))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventNotificationDeleted, events.NotificationDeletedPayload{UserID: 9, NotificationID: 4})))

	require.Len(t, pusher.frames, 3)
	for _, p := range pusher.frames {
		require.Equal(t, int64(9), p.userID)
		require.Equal(t, socket.FrameEvent, p.frame.Type)
	}
	require.Equal(t, socket.EventNotification, pusher.frames[0].frame.Event)
	require.Contains(t, string(pusher.frames[0].frame.Data), `"title":"Return reminder"`)
	require.Equal(t, socket.EventNotificationUpdated, pusher.frames[1].frame.Event)
	require.Equal(t, socket.EventNotificationDeleted, pusher.frames[2].frame.Event)
	require.JSONEq(t, `{"id":4}`, string(pusher.frames[2].frame.Data))
}

func TestWorkerIgnoresForeignPayloads(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	pusher := &fakePusher{}
	worker.StartNotificationWorker(dispatcher, pusher, nil)

	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventNotificationCreated, "not a payload")))
	require.Empty(t, pusher.frames)
}
