package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by StorageConfig.Driver.
const (
	StorageDriverMemory = "memory"
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
)

// Config aggregates runtime configuration for the session client and the mock API.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	API     APIConfig
	Storage StorageConfig
	Redis   RedisConfig
	Socket  SocketConfig
	Toast   ToastConfig
	Auth    AuthConfig
	MockAPI MockAPIConfig
}

// AppConfig identifies the running process.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// APIConfig points the REST client at the backend.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// StorageConfig controls where credentials are persisted and under which keys.
type StorageConfig struct {
	Driver          string
	FilePath        string
	TokenKey        string
	RefreshTokenKey string
	UserKey         string
}

// RedisConfig holds Redis connection values for the redis storage driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SocketConfig holds the real-time connection policy.
type SocketConfig struct {
	URL                 string
	Path                string
	Reconnection        bool
	ReconnectAttempts   int
	ReconnectDelayMS    int
	ReconnectDelayMaxMS int
	HandshakeTimeoutMS  int
}

// ToastConfig bounds the toast queue.
type ToastConfig struct {
	MaxToasts         int
	DefaultDurationMS int
}

// AuthConfig defines token parameters used by the mock API.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLMinutes int
	OTPTTLMinutes          int
	BcryptCost             int
}

// MockAPIConfig controls the development backend listener.
type MockAPIConfig struct {
	Host string
	Port string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	apiBase := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "rental-session"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			BaseURL:        apiBase,
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverMemory)),
			FilePath:        getEnv("STORAGE_FILE_PATH", ".rental-session.json"),
			TokenKey:        getEnv("TOKEN_KEY", "car_rental_token"),
			RefreshTokenKey: getEnv("REFRESH_TOKEN_KEY", "car_rental_refresh_token"),
			UserKey:         getEnv("USER_KEY", "car_rental_user"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Prefix:   getEnv("REDIS_PREFIX", "rental-session:"),
		},
		Socket: SocketConfig{
			URL:                 strings.TrimRight(getEnv("SOCKET_URL", apiBase), "/"),
			Path:                getEnv("SOCKET_PATH", "/socket"),
			Reconnection:        getEnvAsBool("SOCKET_RECONNECTION", true),
			ReconnectAttempts:   getEnvAsInt("SOCKET_RECONNECT_ATTEMPTS", 5),
			ReconnectDelayMS:    getEnvAsInt("SOCKET_RECONNECT_DELAY_MS", 1000),
			ReconnectDelayMaxMS: getEnvAsInt("SOCKET_RECONNECT_DELAY_MAX_MS", 5000),
			HandshakeTimeoutMS:  getEnvAsInt("SOCKET_TIMEOUT_MS", 20000),
		},
		Toast: ToastConfig{
			MaxToasts:         getEnvAsInt("TOAST_MAX", 5),
			DefaultDurationMS: getEnvAsInt("TOAST_DURATION_MS", 5000),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RefreshTokenTTLMinutes: getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_MINUTES", 60*24*7),
			OTPTTLMinutes:          getEnvAsInt("AUTH_OTP_TTL_MINUTES", 10),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		MockAPI: MockAPIConfig{
			Host: getEnv("MOCK_API_HOST", "0.0.0.0"),
			Port: getEnv("MOCK_API_PORT", "8080"),
		},
	}

	switch cfg.Storage.Driver {
	case StorageDriverMemory, StorageDriverFile, StorageDriverRedis:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	return cfg, nil
}

// Timeout returns the per-request timeout for REST calls.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ReconnectDelay returns the minimum delay between reconnection attempts.
func (s SocketConfig) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelayMS) * time.Millisecond
}

// ReconnectDelayMax returns the ceiling for reconnection backoff.
func (s SocketConfig) ReconnectDelayMax() time.Duration {
	return time.Duration(s.ReconnectDelayMaxMS) * time.Millisecond
}

// HandshakeTimeout returns the socket handshake timeout.
func (s SocketConfig) HandshakeTimeout() time.Duration {
	return time.Duration(s.HandshakeTimeoutMS) * time.Millisecond
}

// DefaultDuration returns how long a toast stays visible when no duration is given.
func (t ToastConfig) DefaultDuration() time.Duration {
	return time.Duration(t.DefaultDurationMS) * time.Millisecond
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the lifetime of issued refresh tokens.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLMinutes) * time.Minute
}

// OTPTTL returns how long a password reset code stays valid.
func (a AuthConfig) OTPTTL() time.Duration {
	return time.Duration(a.OTPTTLMinutes) * time.Minute
}

// Addr returns the mock API bind address.
func (m MockAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", m.Host, m.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
