package state

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/service"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// ErrSuperseded is returned by an auth operation whose result arrived after a
// newer operation (typically logout) took over. Its result was discarded.
var ErrSuperseded = errors.New("auth operation superseded")

// AuthAPI is the auth service surface the store drives.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error)
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*domain.User, error)
	RefreshToken(ctx context.Context) (string, error)
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	Enable2FA(ctx context.Context) (string, error)
	UploadProfilePicture(ctx context.Context, filename string, file io.Reader) (string, error)
	IsAuthenticated(ctx context.Context) bool
	AccessToken(ctx context.Context) string
	IsTokenExpired(ctx context.Context, raw string) bool
	GetCurrentUserFromToken(ctx context.Context) domain.Account
	DiscardSession(ctx context.Context)
}

// NotificationAPI is the notification service surface the store drives.
type NotificationAPI interface {
	GetNotifications(ctx context.Context, params service.ListParams) (*domain.NotificationPage, error)
	GetPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, items []domain.PreferenceItem) ([]domain.PreferenceItem, error)
	MarkAsRead(ctx context.Context, id int64) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context) ([]domain.Notification, error)
}

// State is the whole client state tree.
type State struct {
	Auth          AuthState
	Socket        SocketState
	Notifications NotificationState
	Preferences   PreferencesState
}

func (s State) clone() State {
	s.Auth = s.Auth.clone()
	s.Notifications = s.Notifications.clone()
	s.Preferences = s.Preferences.clone()
	return s
}

// Store applies every mutation atomically under one lock and publishes a
// change event once the lock is released.
type Store struct {
	mu    sync.Mutex
	state State

	auth       AuthAPI
	notes      NotificationAPI
	dispatcher events.Dispatcher
	logger     *zap.Logger

	initialized bool

	// opMu serializes session-establishing operations. authGen and
	// cancelInFlight let a newer operation invalidate an older one.
	opMu           sync.Mutex
	authGen        uint64
	cancelInFlight context.CancelFunc
}

// New builds a store. dispatcher and logger may be nil.
func New(auth AuthAPI, notes NotificationAPI, dispatcher events.Dispatcher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &Store{
		state:      State{Auth: newAuthState()},
		auth:       auth,
		notes:      notes,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Dispatcher returns the dispatcher change events go through.
func (s *Store) Dispatcher() events.Dispatcher {
	return s.dispatcher
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// update runs fn under the lock, then publishes eventType with the payload fn returns.
func (s *Store) update(ctx context.Context, eventType events.EventType, fn func(*State) interface{}) {
	s.mu.Lock()
	payload := fn(&s.state)
	s.mu.Unlock()
	s.publish(ctx, eventType, payload)
}

func (s *Store) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if err := s.dispatcher.Publish(ctx, events.New(eventType, payload)); err != nil {
		s.logger.Warn("publish state change", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func errorMessage(err error, fallback string) string {
	return apperrors.Message(err, fallback)
}
