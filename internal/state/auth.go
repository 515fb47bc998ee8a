package state

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
)

// OpStatus is the lifecycle of one async operation.
type OpStatus string

const (
	StatusIdle      OpStatus = "idle"
	StatusPending   OpStatus = "pending"
	StatusFulfilled OpStatus = "fulfilled"
	StatusRejected  OpStatus = "rejected"
)

// AuthOp names an auth operation tracked in AuthState.Ops.
type AuthOp string

const (
	OpLogin          AuthOp = "login"
	OpRegister       AuthOp = "register"
	OpGetCurrentUser AuthOp = "getCurrentUser"
	OpLogout         AuthOp = "logout"
	OpRefresh        AuthOp = "refresh"
	OpUpdateProfile  AuthOp = "updateProfile"
	OpChangePassword AuthOp = "changePassword"
	OpEnable2FA      AuthOp = "enable2FA"
	OpUploadPicture  AuthOp = "uploadPicture"
)

// Outcome records how the last session-establishing operation ended.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeEstablished Outcome = "established"
	OutcomeEnded       Outcome = "ended"
)

// AuthState is the auth slice.
type AuthState struct {
	User        domain.Account
	AccessToken string
	IsLoading   bool
	Error       string
	LastOutcome Outcome
	Ops         map[AuthOp]OpStatus
}

func newAuthState() AuthState {
	return AuthState{Ops: map[AuthOp]OpStatus{}}
}

func (a AuthState) clone() AuthState {
	ops := make(map[AuthOp]OpStatus, len(a.Ops))
	for k, v := range a.Ops {
		ops[k] = v
	}
	a.Ops = ops
	if u, ok := a.User.(*domain.User); ok && u != nil {
		cp := *u
		a.User = &cp
	}
	return a
}

// Status returns the lifecycle of op, idle if it never ran.
func (a AuthState) Status(op AuthOp) OpStatus {
	if st, ok := a.Ops[op]; ok {
		return st
	}
	return StatusIdle
}

// AuthChange is the payload of EventAuthChanged.
type AuthChange struct {
	IsAuthenticated bool
	AccessToken     string
	User            domain.Account
}

func (a *AuthState) establish(user domain.Account, token string) {
	a.User = user
	if token != "" {
		a.AccessToken = token
	}
	a.LastOutcome = OutcomeEstablished
	a.Error = ""
}

func (a *AuthState) end(errMsg string) {
	a.User = nil
	a.AccessToken = ""
	a.LastOutcome = OutcomeEnded
	a.Error = errMsg
}

// selectAuthenticated is the single source of truth for isAuthenticated.
func selectAuthenticated(a AuthState, expired func(string) bool) bool {
	return a.LastOutcome == OutcomeEstablished &&
		a.User != nil &&
		a.AccessToken != "" &&
		!expired(a.AccessToken)
}

// IsAuthenticated reports whether the state holds an established session with
// an unexpired access token.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	a := s.state.Auth
	s.mu.Unlock()
	return selectAuthenticated(a, s.tokenExpired)
}

// CurrentAuth returns what EventAuthChanged would carry right now.
func (s *Store) CurrentAuth() AuthChange {
	s.mu.Lock()
	a := s.state.Auth.clone()
	s.mu.Unlock()
	return s.authChange(a)
}

func (s *Store) tokenExpired(raw string) bool {
	return s.auth.IsTokenExpired(context.Background(), raw)
}

func (s *Store) authChange(a AuthState) AuthChange {
	return AuthChange{
		IsAuthenticated: selectAuthenticated(a, s.tokenExpired),
		AccessToken:     a.AccessToken,
		User:            a.User,
	}
}

// updateAuth mutates the auth slice and publishes EventAuthChanged.
func (s *Store) updateAuth(ctx context.Context, fn func(*AuthState)) {
	s.mu.Lock()
	fn(&s.state.Auth)
	a := s.state.Auth.clone()
	s.mu.Unlock()
	s.publish(ctx, events.EventAuthChanged, s.authChange(a))
}

// InitializeAuth hydrates the session from stored credentials without a
// network call. Only the first call has any effect.
func (s *Store) InitializeAuth(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	var (
		user  domain.Account
		token string
	)
	if s.auth.IsAuthenticated(ctx) {
		user = s.auth.GetCurrentUserFromToken(ctx)
		token = s.auth.AccessToken(ctx)
	}
	s.updateAuth(ctx, func(a *AuthState) {
		if user != nil && token != "" {
			a.establish(user, token)
		}
	})
	s.logger.Debug("auth initialized", zap.Bool("hydrated", user != nil))
}

// SetUser replaces the user; nil ends the session state.
func (s *Store) SetUser(ctx context.Context, user *domain.User) {
	s.updateAuth(ctx, func(a *AuthState) {
		if user == nil {
			a.end("")
			return
		}
		a.User = user
		a.LastOutcome = OutcomeEstablished
	})
}

// ClearError resets the auth error.
func (s *Store) ClearError(ctx context.Context) {
	s.updateAuth(ctx, func(a *AuthState) { a.Error = "" })
}

// ExpireSession ends the session after the backend rejected the stored
// credentials. Stored tokens are already gone by then.
func (s *Store) ExpireSession(ctx context.Context) {
	s.updateAuth(ctx, func(a *AuthState) {
		if a.User == nil && a.AccessToken == "" {
			return
		}
		a.end("Your session has expired. Please sign in again.")
	})
}

// beginSessionOp serializes session-establishing operations, invalidates any
// older one and marks op pending.
func (s *Store) beginSessionOp(ctx context.Context, op AuthOp, clearError bool) (context.Context, uint64, func()) {
	s.opMu.Lock()

	opCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.authGen++
	gen := s.authGen
	s.cancelInFlight = cancel
	s.mu.Unlock()

	s.updateAuth(ctx, func(a *AuthState) {
		a.IsLoading = true
		a.Ops[op] = StatusPending
		if clearError {
			a.Error = ""
		}
	})
	return opCtx, gen, func() {
		cancel()
		s.opMu.Unlock()
	}
}

// supersede invalidates and cancels the in-flight session operation, if any.
func (s *Store) supersede() {
	s.mu.Lock()
	s.authGen++
	if s.cancelInFlight != nil {
		s.cancelInFlight()
	}
	s.mu.Unlock()
}

// finishSessionOp applies fn unless a newer operation started since gen. A
// superseded success has already written tokens, so they are discarded.
func (s *Store) finishSessionOp(ctx context.Context, op AuthOp, gen uint64, succeeded bool, fn func(*AuthState)) error {
	s.mu.Lock()
	stale := gen != s.authGen
	s.mu.Unlock()
	if stale {
		if succeeded {
			s.auth.DiscardSession(context.WithoutCancel(ctx))
		}
		s.logger.Info("discarding superseded auth result", zap.String("op", string(op)))
		return ErrSuperseded
	}
	s.updateAuth(ctx, func(a *AuthState) {
		a.IsLoading = false
		if succeeded {
			a.Ops[op] = StatusFulfilled
		} else {
			a.Ops[op] = StatusRejected
		}
		fn(a)
	})
	return nil
}

// Login authenticates with credentials.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	opCtx, gen, release := s.beginSessionOp(ctx, OpLogin, true)
	defer release()

	res, err := s.auth.Login(opCtx, creds)
	if ferr := s.finishSessionOp(ctx, OpLogin, gen, err == nil, func(a *AuthState) {
		if err != nil {
			a.end(errorMessage(err, "Login failed"))
			return
		}
		a.establish(res.User, res.AccessToken)
	}); ferr != nil {
		return ferr
	}
	return err
}

// Register creates an account and signs in.
func (s *Store) Register(ctx context.Context, reg domain.Registration) error {
	opCtx, gen, release := s.beginSessionOp(ctx, OpRegister, true)
	defer release()

	res, err := s.auth.Register(opCtx, reg)
	if ferr := s.finishSessionOp(ctx, OpRegister, gen, err == nil, func(a *AuthState) {
		if err != nil {
			a.end(errorMessage(err, "Registration failed"))
			return
		}
		a.establish(res.User, res.AccessToken)
	}); ferr != nil {
		return ferr
	}
	return err
}

// GetCurrentUser loads the full profile and replaces any provisional user.
func (s *Store) GetCurrentUser(ctx context.Context) error {
	opCtx, gen, release := s.beginSessionOp(ctx, OpGetCurrentUser, false)
	defer release()

	user, err := s.auth.GetCurrentUser(opCtx)
	token := ""
	if err == nil {
		token = s.auth.AccessToken(opCtx)
	}
	if ferr := s.finishSessionOp(ctx, OpGetCurrentUser, gen, err == nil, func(a *AuthState) {
		if err != nil {
			a.end(errorMessage(err, "Failed to get user"))
			return
		}
		a.establish(user, token)
	}); ferr != nil {
		return ferr
	}
	return err
}

// Logout ends the session. It always ends unauthenticated; the error is set
// only when the backend call failed.
func (s *Store) Logout(ctx context.Context) error {
	s.supersede()
	opCtx, gen, release := s.beginSessionOp(ctx, OpLogout, false)
	defer release()

	err := s.auth.Logout(opCtx)
	if ferr := s.finishSessionOp(ctx, OpLogout, gen, err == nil, func(a *AuthState) {
		if err != nil {
			a.end(errorMessage(err, "Logout failed"))
			return
		}
		a.end("")
	}); ferr != nil {
		return ferr
	}
	return err
}

// Refresh rotates the access token. Failure ends the session.
func (s *Store) Refresh(ctx context.Context) error {
	opCtx, gen, release := s.beginSessionOp(ctx, OpRefresh, false)
	defer release()

	token, err := s.auth.RefreshToken(opCtx)
	if ferr := s.finishSessionOp(ctx, OpRefresh, gen, err == nil, func(a *AuthState) {
		if err != nil {
			a.end(errorMessage(err, "Failed to refresh session"))
			return
		}
		a.AccessToken = token
	}); ferr != nil {
		return ferr
	}
	return err
}

// runProfileOp tracks an operation that edits the signed-in account. Failure
// only sets the error and never ends the session.
func (s *Store) runProfileOp(ctx context.Context, op AuthOp, fallback string, call func() error, apply func(*AuthState)) error {
	s.updateAuth(ctx, func(a *AuthState) {
		a.IsLoading = true
		a.Error = ""
		a.Ops[op] = StatusPending
	})
	err := call()
	s.updateAuth(ctx, func(a *AuthState) {
		a.IsLoading = false
		if err != nil {
			a.Ops[op] = StatusRejected
			a.Error = errorMessage(err, fallback)
			return
		}
		a.Ops[op] = StatusFulfilled
		a.Error = ""
		if apply != nil && a.User != nil {
			apply(a)
		}
	})
	return err
}

// UpdateProfile saves profile fields.
func (s *Store) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	var user *domain.User
	return s.runProfileOp(ctx, OpUpdateProfile, "Failed to update profile",
		func() (err error) {
			user, err = s.auth.UpdateProfile(ctx, update)
			return err
		},
		func(a *AuthState) { a.User = user })
}

// ChangePassword replaces the password of the signed-in user.
func (s *Store) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return s.runProfileOp(ctx, OpChangePassword, "Failed to change password",
		func() error { return s.auth.ChangePassword(ctx, currentPassword, newPassword) },
		nil)
}

// Enable2FA turns on two-factor authentication.
func (s *Store) Enable2FA(ctx context.Context) error {
	return s.runProfileOp(ctx, OpEnable2FA, "Failed to enable two-factor authentication",
		func() error {
			_, err := s.auth.Enable2FA(ctx)
			return err
		},
		func(a *AuthState) {
			if u, ok := a.User.(*domain.User); ok {
				cp := *u
				cp.Is2FA = true
				a.User = &cp
			}
		})
}

// UploadProfilePicture uploads a new avatar.
func (s *Store) UploadProfilePicture(ctx context.Context, filename string, file io.Reader) error {
	var url string
	return s.runProfileOp(ctx, OpUploadPicture, "Failed to upload picture",
		func() (err error) {
			url, err = s.auth.UploadProfilePicture(ctx, filename, file)
			return err
		},
		func(a *AuthState) {
			if u, ok := a.User.(*domain.User); ok {
				cp := *u
				cp.Picture = &url
				a.User = &cp
			}
		})
}
