package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/client"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/token"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// AuthService wraps the backend auth endpoints and owns the token side effects.
type AuthService struct {
	api    *client.Client
	tokens *token.Store
	logger *zap.Logger

	onExpired []func(ctx context.Context)
}

// NewAuthService builds the service. A 401 on any authenticated call destroys
// the stored session.
func NewAuthService(api *client.Client, tokens *token.Store, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{api: api, tokens: tokens, logger: logger}
	api.OnUnauthorized(func(ctx context.Context) {
		s.logger.Info("backend rejected credentials; clearing session")
		s.tokens.ClearTokens(ctx)
		for _, fn := range s.onExpired {
			fn(ctx)
		}
	})
	return s
}

// OnSessionExpired registers fn to run after a 401 cleared the stored session.
// Register hooks before issuing requests.
func (s *AuthService) OnSessionExpired(fn func(ctx context.Context)) {
	s.onExpired = append(s.onExpired, fn)
}

// Login authenticates and persists the returned session.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return s.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account and persists the returned session.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	return s.authenticate(ctx, "/users/signup", reg)
}

func (s *AuthService) authenticate(ctx context.Context, path string, payload any) (*domain.AuthResult, error) {
	var sess domain.Session
	if err := s.api.Do(ctx, client.Request{Method: http.MethodPost, Path: path, Body: payload}, &sess); err != nil {
		return nil, err
	}
	// Validate before touching storage so a bad response never leaves a partial write.
	if sess.AccessToken == "" || sess.User == nil {
		return nil, apperrors.NewServerError(http.StatusOK, "malformed auth response", nil)
	}

	s.tokens.SetToken(ctx, sess.AccessToken)
	if sess.RefreshToken != "" {
		s.tokens.SetRefreshToken(ctx, sess.RefreshToken)
	}
	s.tokens.SetUser(ctx, sess.User)

	return &domain.AuthResult{AccessToken: sess.AccessToken, User: sess.User}, nil
}

// Logout notifies the backend best-effort and always clears local credentials.
// The backend error, if any, is returned after the tokens are gone.
func (s *AuthService) Logout(ctx context.Context) error {
	defer s.tokens.ClearTokens(ctx)
	if err := s.api.Do(ctx, client.Request{Method: http.MethodPost, Path: "/auth/logout", Authenticated: true}, nil); err != nil {
		s.logger.Warn("logout call failed", zap.Error(err))
		return err
	}
	return nil
}

// DiscardSession clears local credentials without contacting the backend.
func (s *AuthService) DiscardSession(ctx context.Context) {
	s.tokens.ClearTokens(ctx)
}

// GetCurrentUser fetches the profile and refreshes the persisted copy.
func (s *AuthService) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	var raw json.RawMessage
	if err := s.api.Do(ctx, client.Request{Method: http.MethodGet, Path: "/auth/profile", Authenticated: true}, &raw); err != nil {
		return nil, err
	}
	user, err := decodeUser(raw)
	if err != nil {
		return nil, err
	}
	s.persistUser(ctx, user)
	return user, nil
}

// RefreshToken trades the stored refresh token for a new access token. Any
// failure, including a missing refresh token, clears the whole session.
func (s *AuthService) RefreshToken(ctx context.Context) (string, error) {
	refresh := s.tokens.GetRefreshToken(ctx)
	if refresh == "" {
		s.tokens.ClearTokens(ctx)
		return "", apperrors.NewClientError("No refresh token available")
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	err := s.api.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   map[string]string{"refreshToken": refresh},
	}, &resp)
	if err == nil && resp.AccessToken == "" {
		err = apperrors.NewServerError(http.StatusOK, "malformed refresh response", nil)
	}
	if err != nil {
		s.tokens.ClearTokens(ctx)
		return "", err
	}

	s.tokens.SetToken(ctx, resp.AccessToken)
	return resp.AccessToken, nil
}

// RequestPasswordResetOTP asks the backend to email a one-time password.
func (s *AuthService) RequestPasswordResetOTP(ctx context.Context, email string) error {
	return s.api.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/reset-otp",
		Body:   map[string]string{"email": email},
	}, nil)
}

// ResetPasswordWithOTP sets a new password using the emailed code.
func (s *AuthService) ResetPasswordWithOTP(ctx context.Context, otp, newPassword string) error {
	if otp == "" {
		return apperrors.NewClientError("OTP is required")
	}
	return s.api.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/reset-password/" + url.PathEscape(otp),
		Body:   map[string]string{"newPassword": newPassword},
	}, nil)
}

// UpdateProfile saves profile fields and returns the updated user.
func (s *AuthService) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	var raw json.RawMessage
	if err := s.api.Do(ctx, client.Request{Method: http.MethodPut, Path: "/auth/profile", Body: update, Authenticated: true}, &raw); err != nil {
		return nil, err
	}
	user, err := decodeUser(raw)
	if err != nil {
		return nil, err
	}
	s.persistUser(ctx, user)
	return user, nil
}

// ChangePassword verifies the current password server-side and replaces it.
func (s *AuthService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return s.api.Do(ctx, client.Request{
		Method:        http.MethodPut,
		Path:          "/auth/change-password",
		Body:          map[string]string{"currentPassword": currentPassword, "newPassword": newPassword},
		Authenticated: true,
	}, nil)
}

// UploadProfilePicture uploads an image and returns its public URL.
func (s *AuthService) UploadProfilePicture(ctx context.Context, filename string, file io.Reader) (string, error) {
	var resp struct {
		PictureURL string `json:"pictureUrl"`
	}
	if err := s.api.Upload(ctx, "/auth/upload-picture", "picture", filename, file, &resp); err != nil {
		return "", err
	}
	if user := s.tokens.GetUser(ctx); user != nil {
		pic := resp.PictureURL
		user.Picture = &pic
		s.persistUser(ctx, user)
	}
	return resp.PictureURL, nil
}

// Enable2FA turns on two-factor authentication for the current user.
func (s *AuthService) Enable2FA(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := s.api.Do(ctx, client.Request{Method: http.MethodPost, Path: "/users/enable-2fa", Authenticated: true}, &resp); err != nil {
		return "", err
	}
	if user := s.tokens.GetUser(ctx); user != nil {
		user.Is2FA = true
		s.persistUser(ctx, user)
	}
	return resp.Message, nil
}

// persistUser writes user back only while a session is stored, so a response
// landing after logout does not recreate the persisted user.
func (s *AuthService) persistUser(ctx context.Context, user *domain.User) {
	if !s.tokens.HasToken(ctx) {
		s.logger.Debug("session gone, dropping user update", zap.Int64("user_id", user.ID))
		return
	}
	s.tokens.SetUser(ctx, user)
}

// IsAuthenticated is a pure function of stored credentials; it never calls the network.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	return s.tokens.HasToken(ctx) && !s.tokens.IsTokenExpired(ctx, "")
}

// AccessToken returns the stored access token.
func (s *AuthService) AccessToken(ctx context.Context) string {
	return s.tokens.GetToken(ctx)
}

// IsTokenExpired reports expiry of raw using the token store clock.
func (s *AuthService) IsTokenExpired(ctx context.Context, raw string) bool {
	return s.tokens.IsTokenExpired(ctx, raw)
}

// GetCurrentUserFromToken prefers the persisted profile when it belongs to the
// token's subject and falls back to a provisional account built from claims.
func (s *AuthService) GetCurrentUserFromToken(ctx context.Context) domain.Account {
	claims := s.tokens.GetUserFromToken(ctx)
	if claims == nil {
		return nil
	}
	if user := s.tokens.GetUser(ctx); user != nil && user.ID == claims.ID {
		return user
	}
	return domain.NewProvisionalUser(claims)
}

func decodeUser(raw json.RawMessage) (*domain.User, error) {
	var envelope struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.User != nil {
		return envelope.User, nil
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil || user.ID == 0 {
		return nil, apperrors.NewServerError(http.StatusOK, "malformed user response", errorDetails(err))
	}
	return &user, nil
}

func errorDetails(err error) []string {
	if err == nil {
		return nil
	}
	return []string{fmt.Sprint(err)}
}
