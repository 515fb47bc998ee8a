package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/events"
)

func TestDispatcherDeliversInOrderDespiteErrors(t *testing.T) {
	d := events.NewInMemoryDispatcher(nil)
	var got []string
	d.Subscribe(events.EventAuthChanged, func(context.Context, events.Event) error {
		got = append(got, "first")
		return errors.New("ignored")
	})
	d.Subscribe(events.EventAuthChanged, func(_ context.Context, e events.Event) error {
		got = append(got, "second:"+e.Payload.(string))
		return nil
	})
	d.Subscribe(events.EventSocketChanged, func(context.Context, events.Event) error {
		got = append(got, "other")
		return nil
	})

	ev := events.New(events.EventAuthChanged, "x")
	require.NotEmpty(t, ev.ID)
	require.NoError(t, d.Publish(context.Background(), ev))
	require.Equal(t, []string{"first", "second:x"}, got)
}
