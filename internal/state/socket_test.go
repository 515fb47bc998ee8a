package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/state"
)

func TestSocketSlice(t *testing.T) {
	ctx := context.Background()
	s := newStore(&fakeAuth{}, nil)

	s.SetConnectionError(ctx, "dial tcp: connection refused")
	s.IncrementReconnectAttempts(ctx)
	s.IncrementReconnectAttempts(ctx)
	require.Equal(t, state.SocketState{ConnectionError: "dial tcp: connection refused", ReconnectAttempts: 2}, s.State().Socket)

	s.SetConnected(ctx, true)
	require.Equal(t, state.SocketState{IsConnected: true}, s.State().Socket)

	s.SetConnected(ctx, false)
	s.SetConnectionError(ctx, "transport close")
	require.Equal(t, state.SocketState{ConnectionError: "transport close"}, s.State().Socket)

	s.ResetSocket(ctx)
	require.Equal(t, state.SocketState{}, s.State().Socket)
}
