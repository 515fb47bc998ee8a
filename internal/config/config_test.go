package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "car_rental_token", cfg.Storage.TokenKey)
	require.Equal(t, "car_rental_refresh_token", cfg.Storage.RefreshTokenKey)
	require.Equal(t, config.StorageDriverMemory, cfg.Storage.Driver)
	require.True(t, cfg.Socket.Reconnection)
	require.Equal(t, 5, cfg.Socket.ReconnectAttempts)
	require.Equal(t, time.Second, cfg.Socket.ReconnectDelay())
	require.Equal(t, 5*time.Second, cfg.Socket.ReconnectDelayMax())
	require.Equal(t, 20*time.Second, cfg.Socket.HandshakeTimeout())
	require.Equal(t, 5, cfg.Toast.MaxToasts)
	require.Equal(t, 5*time.Second, cfg.Toast.DefaultDuration())
	require.Equal(t, cfg.API.BaseURL, cfg.Socket.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOKEN_KEY", "tk")
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("SOCKET_RECONNECT_ATTEMPTS", "9")
	t.Setenv("SOCKET_RECONNECTION", "false")
	t.Setenv("STORAGE_DRIVER", "Redis")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "tk", cfg.Storage.TokenKey)
	require.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	require.Equal(t, "https://api.example.com", cfg.Socket.URL)
	require.Equal(t, 9, cfg.Socket.ReconnectAttempts)
	require.False(t, cfg.Socket.Reconnection)
	require.Equal(t, config.StorageDriverRedis, cfg.Storage.Driver)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "cookie")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := config.Load()
	require.Error(t, err)
}
