package token

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/persistence"
)

// Keys names the storage slots credentials are persisted under.
type Keys struct {
	Token        string
	RefreshToken string
	User         string
}

// DefaultKeys are used when no configuration overrides them.
var DefaultKeys = Keys{
	Token:        "car_rental_token",
	RefreshToken: "car_rental_refresh_token",
	User:         "car_rental_user",
}

// KeysFromConfig reads the storage keys from configuration, keeping defaults for blanks.
func KeysFromConfig(cfg config.StorageConfig) Keys {
	keys := DefaultKeys
	if cfg.TokenKey != "" {
		keys.Token = cfg.TokenKey
	}
	if cfg.RefreshTokenKey != "" {
		keys.RefreshToken = cfg.RefreshTokenKey
	}
	if cfg.UserKey != "" {
		keys.User = cfg.UserKey
	}
	return keys
}

// Store is the sole reader and writer of credential material. A Store without
// storage behaves as if nothing is persisted and ignores writes.
type Store struct {
	storage persistence.Storage
	keys    Keys
	logger  *zap.Logger
	nowFunc func() time.Time
	parser  *jwt.Parser
}

type Option func(*Store)

// WithNowFunc sets the clock used for expiry checks.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// WithKeys overrides the storage keys.
func WithKeys(keys Keys) Option {
	return func(s *Store) {
		s.keys = keys
	}
}

// WithLogger sets the logger used to report storage failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore builds a token store over storage, which may be nil.
func NewStore(storage persistence.Storage, options ...Option) *Store {
	s := &Store{
		storage: storage,
		keys:    DefaultKeys,
		parser:  jwt.NewParser(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s
}

// GetToken returns the stored access token or "".
func (s *Store) GetToken(ctx context.Context) string {
	return s.get(ctx, s.keys.Token)
}

// SetToken stores the access token.
func (s *Store) SetToken(ctx context.Context, token string) {
	s.set(ctx, s.keys.Token, token)
}

// RemoveToken deletes the access token.
func (s *Store) RemoveToken(ctx context.Context) {
	s.remove(ctx, s.keys.Token)
}

// GetRefreshToken returns the stored refresh token or "".
func (s *Store) GetRefreshToken(ctx context.Context) string {
	return s.get(ctx, s.keys.RefreshToken)
}

// SetRefreshToken stores the refresh token.
func (s *Store) SetRefreshToken(ctx context.Context, token string) {
	s.set(ctx, s.keys.RefreshToken, token)
}

// RemoveRefreshToken deletes the refresh token.
func (s *Store) RemoveRefreshToken(ctx context.Context) {
	s.remove(ctx, s.keys.RefreshToken)
}

// GetUser returns the persisted user object, or nil if absent or unreadable.
func (s *Store) GetUser(ctx context.Context) *domain.User {
	raw := s.get(ctx, s.keys.User)
	if raw == "" {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("discarding unreadable persisted user", zap.Error(err))
		return nil
	}
	return &user
}

// SetUser persists the full user object.
func (s *Store) SetUser(ctx context.Context, user *domain.User) {
	if user == nil {
		s.RemoveUser(ctx)
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("unable to encode user", zap.Error(err))
		return
	}
	s.set(ctx, s.keys.User, string(data))
}

// RemoveUser deletes the persisted user object.
func (s *Store) RemoveUser(ctx context.Context) {
	s.remove(ctx, s.keys.User)
}

// ClearTokens removes both tokens and the persisted user. Safe to repeat.
func (s *Store) ClearTokens(ctx context.Context) {
	s.RemoveToken(ctx)
	s.RemoveRefreshToken(ctx)
	s.RemoveUser(ctx)
}

// HasToken reports whether an access token is stored.
func (s *Store) HasToken(ctx context.Context) bool {
	return s.GetToken(ctx) != ""
}

// DecodeToken reads the claims of a three-part token without verifying its
// signature. Any malformation yields nil.
func (s *Store) DecodeToken(raw string) *domain.Claims {
	if raw == "" {
		return nil
	}
	claims := &domain.Claims{}
	if _, _, err := s.parser.ParseUnverified(raw, claims); err != nil {
		s.logger.Debug("token decode failed", zap.Error(err))
		return nil
	}
	return claims
}

// IsTokenExpired reports whether raw (or the stored token when raw is empty) is
// missing, undecodable, lacks exp, or has exp in the past.
func (s *Store) IsTokenExpired(ctx context.Context, raw string) bool {
	if raw == "" {
		raw = s.GetToken(ctx)
	}
	if raw == "" {
		return true
	}
	claims := s.DecodeToken(raw)
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(s.nowFunc())
}

// GetUserFromToken returns the stored token's claims only while it is unexpired.
func (s *Store) GetUserFromToken(ctx context.Context) *domain.Claims {
	raw := s.GetToken(ctx)
	if raw == "" || s.IsTokenExpired(ctx, raw) {
		return nil
	}
	return s.DecodeToken(raw)
}

// Now exposes the store clock so callers agree on expiry.
func (s *Store) Now() time.Time {
	return s.nowFunc()
}

func (s *Store) get(ctx context.Context, key string) string {
	if s.storage == nil {
		return ""
	}
	v, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, persistence.ErrKeyNotFound) {
			s.logger.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return v
}

func (s *Store) set(ctx context.Context, key, value string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Set(ctx, key, value); err != nil {
		s.logger.Warn("storage write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) remove(ctx context.Context, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("storage delete failed", zap.String("key", key), zap.Error(err))
	}
}
