package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/observability"
	"github.com/spec-kit/rental-session/internal/socket"
	"github.com/spec-kit/rental-session/internal/state"
	"github.com/spec-kit/rental-session/internal/toast"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// PasswordResets is the part of the auth service used outside the store.
type PasswordResets interface {
	RequestPasswordResetOTP(ctx context.Context, email string) error
	ResetPasswordWithOTP(ctx context.Context, otp, newPassword string) error
}

// TokenClock decodes access tokens against the clock that decides their expiry.
type TokenClock interface {
	DecodeToken(raw string) *domain.Claims
	Now() time.Time
}

// Timer is a pending expiry check.
type Timer interface {
	Stop() bool
}

// Deps wires a Session. Without Tokens the socket is not dropped when the
// access token expires on its own.
type Deps struct {
	Store     *state.Store
	Resets    PasswordResets
	Toasts    *toast.Queue
	APIURL    string
	Socket    socket.Options
	Tokens    TokenClock
	AfterFunc func(d time.Duration, f func()) Timer
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Session ties the auth state to the socket and reports user actions as toasts.
type Session struct {
	store   *state.Store
	resets  PasswordResets
	toasts  *toast.Queue
	sockets *socket.Manager
	apiURL  string
	tokens  TokenClock
	after   func(d time.Duration, f func()) Timer
	logger  *zap.Logger

	syncMu sync.Mutex
	synced bool
	closed bool
	last   syncKey
	expiry Timer
}

type syncKey struct {
	authenticated bool
	token         string
}

// New builds a session and subscribes it to auth changes.
func New(d Deps) *Session {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	toasts := d.Toasts
	if toasts == nil {
		toasts = toast.NewQueue(toast.WithLogger(logger))
	}
	after := d.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	s := &Session{
		store:  d.Store,
		resets: d.Resets,
		toasts: toasts,
		apiURL: d.APIURL,
		tokens: d.Tokens,
		after:  after,
		logger: logger,
	}
	s.sockets = socket.NewManager(d.Socket,
		&bridge{store: d.Store, toasts: toasts, logger: logger},
		logger.Named("socket"),
		socket.WithMetrics(d.Metrics))

	d.Store.Dispatcher().Subscribe(events.EventAuthChanged, func(_ context.Context, e events.Event) error {
		if _, ok := e.Payload.(state.AuthChange); !ok {
			return errors.New("unexpected auth change payload")
		}
		s.syncSocket()
		return nil
	})
	return s
}

// syncSocket brings the socket in line with the store. Payloads can be
// delivered out of order, so the current auth state is read under syncMu
// instead of trusting the event. The socket is only touched when the
// authenticated flag or the token changed.
func (s *Session) syncSocket() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if s.closed {
		return
	}

	change := s.store.CurrentAuth()
	key := syncKey{authenticated: change.IsAuthenticated, token: change.AccessToken}
	if !key.authenticated {
		key.token = ""
	}
	s.armExpiryLocked(key)

	if s.synced && key == s.last {
		return
	}
	s.synced = true
	s.last = key
	s.sockets.Sync(s.apiURL, key.authenticated, key.token)
}

// armExpiryLocked schedules a resync just past the access token's exp so an
// idle session drops its socket once the token lapses.
func (s *Session) armExpiryLocked(key syncKey) {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	if !key.authenticated || s.tokens == nil {
		return
	}
	claims := s.tokens.DecodeToken(key.token)
	if claims == nil || claims.ExpiresAt == nil {
		return
	}
	wait := claims.ExpiresAt.Time.Sub(s.tokens.Now()) + time.Millisecond
	if wait < 0 {
		wait = 0
	}
	s.expiry = s.after(wait, func() {
		s.logger.Debug("access token expiry reached")
		s.syncSocket()
	})
}

// Bootstrap restores a stored session once and brings the socket in line.
func (s *Session) Bootstrap(ctx context.Context) {
	s.store.InitializeAuth(ctx)
	s.syncSocket()
}

// Store exposes the state store.
func (s *Session) Store() *state.Store { return s.store }

// Toasts exposes the toast queue.
func (s *Session) Toasts() *toast.Queue { return s.toasts }

// SocketConnected reports whether the socket completed its handshake.
func (s *Session) SocketConnected() bool { return s.sockets.Connected() }

// Login signs in and reports the outcome.
func (s *Session) Login(ctx context.Context, creds domain.Credentials) error {
	err := s.store.Login(ctx, creds)
	switch {
	case err == nil:
		s.toasts.Success("Welcome back!", "You have been successfully signed in.")
	case errors.Is(err, state.ErrSuperseded):
	default:
		s.toasts.Error("Sign In Failed", s.store.State().Auth.Error)
	}
	return err
}

// Register creates an account and reports the outcome.
func (s *Session) Register(ctx context.Context, reg domain.Registration) error {
	err := s.store.Register(ctx, reg)
	switch {
	case err == nil:
		s.toasts.Success("Account created", "Welcome aboard!")
	case errors.Is(err, state.ErrSuperseded):
	default:
		s.toasts.Error("Registration Failed", s.store.State().Auth.Error)
	}
	return err
}

// Logout signs out. Local credentials are gone even when the backend call fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.store.Logout(ctx)
	if err != nil && !errors.Is(err, state.ErrSuperseded) {
		s.toasts.Error("Logout Failed", s.store.State().Auth.Error)
		return err
	}
	s.toasts.Success("Signed out", "You have been signed out.")
	return err
}

// RequestPasswordReset emails a one-time password.
func (s *Session) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.resets.RequestPasswordResetOTP(ctx, email); err != nil {
		s.toasts.Error(apperrors.Message(err, "Failed to send OTP. Please try again."), "")
		return err
	}
	s.toasts.Success("OTP sent to your email address", "")
	return nil
}

// ResetPassword completes a password reset.
func (s *Session) ResetPassword(ctx context.Context, otp, newPassword string) error {
	if err := s.resets.ResetPasswordWithOTP(ctx, otp, newPassword); err != nil {
		s.toasts.Error("Reset Failed", apperrors.Message(err, "Failed to reset password. Please try again."))
		return err
	}
	s.toasts.Success("Password Reset", "Your password has been updated. Please sign in.")
	return nil
}

// SavePreferences stores notification preferences.
func (s *Session) SavePreferences(ctx context.Context, items []domain.PreferenceItem) error {
	if err := s.store.UpdatePreferences(ctx, items); err != nil {
		s.toasts.Error("Save Failed", s.store.State().Preferences.Error)
		return err
	}
	s.toasts.Success("Preferences Saved", "Your notification preferences have been updated successfully.")
	return nil
}

// Close drops the socket and stops tracking auth changes.
func (s *Session) Close() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.closed = true
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.sockets.Close()
}
