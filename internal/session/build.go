package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/client"
	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/observability"
	"github.com/spec-kit/rental-session/internal/persistence"
	"github.com/spec-kit/rental-session/internal/service"
	"github.com/spec-kit/rental-session/internal/socket"
	"github.com/spec-kit/rental-session/internal/state"
	"github.com/spec-kit/rental-session/internal/token"
	"github.com/spec-kit/rental-session/internal/toast"
)

// Build wires storage, services, state, toasts and the socket from configuration.
// toastOpts are applied after the configured ones. The returned func releases
// the socket and the storage backend.
func Build(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics, toastOpts ...toast.Option) (*Session, func(), error) {
	storage, closeStorage, err := persistence.Open(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	tokens := token.NewStore(storage,
		token.WithKeys(token.KeysFromConfig(cfg.Storage)),
		token.WithLogger(logger))
	api := client.New(cfg.API.BaseURL, tokens,
		client.WithTimeout(cfg.API.Timeout()),
		client.WithLogger(logger.Named("api")),
		client.WithMetrics(metrics))

	authSvc := service.NewAuthService(api, tokens, logger)
	notes := service.NewNotificationService(api, logger)
	store := state.New(authSvc, notes, events.NewInMemoryDispatcher(logger), logger)
	authSvc.OnSessionExpired(store.ExpireSession)

	opts := append(toast.FromConfig(cfg.Toast), toast.WithLogger(logger.Named("toast")))
	toasts := toast.NewQueue(append(opts, toastOpts...)...)

	s := New(Deps{
		Store:   store,
		Resets:  authSvc,
		Toasts:  toasts,
		APIURL:  cfg.Socket.URL,
		Socket:  socket.OptionsFromConfig(cfg.Socket),
		Tokens:  tokens,
		Logger:  logger,
		Metrics: metrics,
	})
	return s, func() {
		s.Close()
		closeStorage()
	}, nil
}
