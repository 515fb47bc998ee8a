package observability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/observability"
)

func TestMetricsCounters(t *testing.T) {
	m := observability.NewMetrics()
	m.RecordRequest("/auth/login", "POST", 200, time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 200, time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 401, time.Millisecond)
	m.RecordError("/auth/login", "POST", "SERVER_ERROR")
	m.RecordSocketEvent("connect")

	snap := m.Snapshot()
	require.Equal(t, int64(2), snap.Requests["/auth/login|POST|200"])
	require.Equal(t, int64(1), snap.Requests["/auth/login|POST|401"])
	require.Equal(t, int64(1), snap.Errors["/auth/login|POST|SERVER_ERROR"])
	require.Equal(t, int64(1), snap.SocketEvents["connect"])
	require.Equal(t, []string{"/auth/login|POST|200", "/auth/login|POST|401"}, snap.Keys())
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *observability.Metrics
	m.RecordRequest("/x", "GET", 200, 0)
	m.RecordError("/x", "GET", "E")
	m.RecordSocketEvent("connect")
	require.Empty(t, m.Snapshot().Requests)
}
