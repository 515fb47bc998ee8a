package state

import (
	"context"

	"github.com/spec-kit/rental-session/internal/events"
)

// SocketState mirrors the real-time connection for the UI.
type SocketState struct {
	IsConnected       bool
	ConnectionError   string
	ReconnectAttempts int
}

func (s *Store) updateSocket(ctx context.Context, fn func(*SocketState)) {
	s.update(ctx, events.EventSocketChanged, func(st *State) interface{} {
		fn(&st.Socket)
		return st.Socket
	})
}

// SetConnected records the connection status. Connecting clears the error and
// the attempt counter.
func (s *Store) SetConnected(ctx context.Context, connected bool) {
	s.updateSocket(ctx, func(sock *SocketState) {
		sock.IsConnected = connected
		if connected {
			sock.ConnectionError = ""
			sock.ReconnectAttempts = 0
		}
	})
}

// SetConnectionError records the latest connection error; "" clears it.
func (s *Store) SetConnectionError(ctx context.Context, msg string) {
	s.updateSocket(ctx, func(sock *SocketState) { sock.ConnectionError = msg })
}

// IncrementReconnectAttempts counts one failed connection attempt.
func (s *Store) IncrementReconnectAttempts(ctx context.Context) {
	s.updateSocket(ctx, func(sock *SocketState) { sock.ReconnectAttempts++ })
}

// ResetSocket returns the socket slice to its initial values.
func (s *Store) ResetSocket(ctx context.Context) {
	s.updateSocket(ctx, func(sock *SocketState) { *sock = SocketState{} })
}
