// Package mockapi is an in-memory rental backend for development and tests:
// accounts, notifications and a socket hub fed by notification events.
package mockapi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/dto"
	"github.com/spec-kit/rental-session/internal/auth"
	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/repository"
	"github.com/spec-kit/rental-session/internal/worker"
)

// Demo account seeded by Seed.
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "password"
)

// Backend bundles the mock services.
type Backend struct {
	Tokens        *auth.TokenManager
	Users         repository.UserRepository
	Accounts      *Accounts
	Notifications *Notifications
	Hub           *Hub
	Dispatcher    events.Dispatcher
}

// Option customizes a Backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithNowFunc replaces the clock used for tokens, codes and timestamps.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a backend and starts the notification worker.
func New(cfg config.AuthConfig, logger *zap.Logger, opts ...Option) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	users := repository.NewUserRepository()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()).WithNow(o.now)
	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := NewHub(logger.Named("hub"))

	b := &Backend{
		Tokens: tokens,
		Users:  users,
		Accounts: &Accounts{
			cfg:     cfg,
			users:   users,
			resets:  repository.NewPasswordResetRepository(),
			refresh: repository.NewRefreshTokenRepository(),
			tokens:  tokens,
			now:     o.now,
			logger:  logger.Named("accounts"),
		},
		Notifications: &Notifications{
			repo:       repository.NewNotificationRepository(),
			users:      users,
			dispatcher: dispatcher,
			now:        o.now,
			logger:     logger.Named("notifications"),
		},
		Hub:        hub,
		Dispatcher: dispatcher,
	}
	worker.StartNotificationWorker(dispatcher, hub, logger.Named("worker"))
	return b
}

// Seed creates the demo account with a welcome notification.
func (b *Backend) Seed(ctx context.Context) (*domain.User, error) {
	user, err := b.Accounts.CreateUser(ctx, dto.SignupRequest{
		FirstName:       "Demo",
		LastName:        "Renter",
		Email:           DemoEmail,
		Password:        DemoPassword,
		IsTermsAccepted: true,
	}, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("seed demo user: %w", err)
	}
	if _, err := b.Notifications.Create(ctx, dto.CreateNotificationRequest{
		UserID:  user.ID,
		Title:   "Welcome",
		Message: "Your account is ready. Start browsing cars near you.",
		Type:    domain.NotificationInfo,
	}); err != nil {
		return nil, fmt.Errorf("seed welcome notification: %w", err)
	}
	return user, nil
}
