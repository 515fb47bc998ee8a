package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/api/client"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/persistence"
	"github.com/spec-kit/rental-session/internal/service"
	"github.com/spec-kit/rental-session/internal/token"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func accessToken(t *testing.T, id int64, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    id,
		"email": "user@example.com",
		"role":  domain.RoleUser,
		"iat":   exp.Add(-time.Hour).Unix(),
		"exp":   exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	srv    *httptest.Server
	tokens *token.Store
	auth   *service.AuthService
	notes  *service.NotificationService
	hits   atomic.Int32
}

func newFixture(t *testing.T, mux *http.ServeMux) *fixture {
	t.Helper()
	f := &fixture{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	f.tokens = token.NewStore(persistence.NewMemory(), token.WithNowFunc(func() time.Time { return now }))
	api := client.New(f.srv.URL, f.tokens)
	f.auth = service.NewAuthService(api, f.tokens, nil)
	f.notes = service.NewNotificationService(api, nil)
	return f
}

func TestLoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	tok := accessToken(t, 1, now.Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "password" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Session{
			AccessToken:  tok,
			RefreshToken: "refresh-1",
			User:         &domain.User{ID: 1, Email: creds.Email, FirstName: "Ada"},
		})
	})
	f := newFixture(t, mux)

	res, err := f.auth.Login(ctx, domain.Credentials{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	require.Equal(t, tok, res.AccessToken)
	require.Equal(t, "Ada", res.User.FirstName)

	require.Equal(t, tok, f.tokens.GetToken(ctx))
	require.Equal(t, "refresh-1", f.tokens.GetRefreshToken(ctx))
	require.True(t, f.auth.IsAuthenticated(ctx))
}

func TestLoginFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
	})
	f := newFixture(t, mux)

	_, err := f.auth.Login(ctx, domain.Credentials{Email: "user@example.com", Password: "nope"})
	require.Error(t, err)
	require.Equal(t, "Invalid credentials", apperrors.Message(err, ""))
	require.False(t, f.tokens.HasToken(ctx))
	require.Equal(t, "", f.tokens.GetRefreshToken(ctx))
	require.Nil(t, f.tokens.GetUser(ctx))
}

func TestLoginMalformedResponseWritesNothing(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/signup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"refreshToken": "r"})
	})
	f := newFixture(t, mux)

	_, err := f.auth.Register(ctx, domain.Registration{Email: "new@example.com", Password: "pw"})
	require.Error(t, err)
	require.Equal(t, "", f.tokens.GetRefreshToken(ctx))
}

func TestRefreshWithoutRefreshTokenSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.NewServeMux())
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(-time.Minute)))

	_, err := f.auth.RefreshToken(ctx)
	require.Error(t, err)
	require.Equal(t, int32(0), f.hits.Load())
	require.False(t, f.tokens.HasToken(ctx))
}

func TestRefreshSuccessReplacesAccessToken(t *testing.T) {
	ctx := context.Background()
	fresh := accessToken(t, 1, now.Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "refresh-1", body["refreshToken"])
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": fresh})
	})
	f := newFixture(t, mux)
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(-time.Minute)))
	f.tokens.SetRefreshToken(ctx, "refresh-1")

	got, err := f.auth.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, fresh, got)
	require.Equal(t, fresh, f.tokens.GetToken(ctx))
	require.Equal(t, "refresh-1", f.tokens.GetRefreshToken(ctx))
}

func TestRefreshFailureClearsTokens(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Refresh token revoked"})
	})
	f := newFixture(t, mux)
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))
	f.tokens.SetRefreshToken(ctx, "stale")

	_, err := f.auth.RefreshToken(ctx)
	require.Error(t, err)
	require.False(t, f.tokens.HasToken(ctx))
	require.Equal(t, "", f.tokens.GetRefreshToken(ctx))
}

func TestLogoutAlwaysClearsTokens(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
	})
	f := newFixture(t, mux)
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))
	f.tokens.SetRefreshToken(ctx, "r")

	err := f.auth.Logout(ctx)
	require.Error(t, err)
	require.False(t, f.tokens.HasToken(ctx))
	require.Equal(t, "", f.tokens.GetRefreshToken(ctx))
	require.False(t, f.auth.IsAuthenticated(ctx))
}

func TestUnauthorizedProfileClearsSession(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
	})
	f := newFixture(t, mux)
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))

	_, err := f.auth.GetCurrentUser(ctx)
	require.True(t, apperrors.IsUnauthorized(err))
	require.False(t, f.tokens.HasToken(ctx))
}

func TestGetCurrentUserAcceptsEnvelope(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"user": domain.User{ID: 4, Email: "x@y.z"}})
	})
	f := newFixture(t, mux)
	f.tokens.SetToken(ctx, "abc")

	user, err := f.auth.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), user.ID)
	require.Equal(t, int64(4), f.tokens.GetUser(ctx).ID)
}

func TestGetCurrentUserFromToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.NewServeMux())
	require.Nil(t, f.auth.GetCurrentUserFromToken(ctx))

	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))
	acct := f.auth.GetCurrentUserFromToken(ctx)
	require.NotNil(t, acct)
	require.True(t, acct.Provisional())
	require.Equal(t, int64(1), acct.AccountID())

	f.tokens.SetUser(ctx, &domain.User{ID: 1, Email: "user@example.com", FirstName: "Ada"})
	acct = f.auth.GetCurrentUserFromToken(ctx)
	require.False(t, acct.Provisional())
	require.Equal(t, "Ada", acct.(*domain.User).FirstName)

	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(-time.Hour)))
	require.Nil(t, f.auth.GetCurrentUserFromToken(ctx))
}

func TestIsAuthenticatedAfterClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, http.NewServeMux())
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))
	require.True(t, f.auth.IsAuthenticated(ctx))

	f.auth.DiscardSession(ctx)
	require.False(t, f.auth.IsAuthenticated(ctx))
	require.Equal(t, int32(0), f.hits.Load())
}

func TestAccountEndpoints(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/reset-otp", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "sent"})
	})
	mux.HandleFunc("POST /auth/reset-password/{otp}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("otp") != "123456" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid OTP"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("PUT /auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("PUT /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		var upd domain.ProfileUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upd))
		writeJSON(w, http.StatusOK, domain.User{ID: 1, FirstName: upd.FirstName, LastName: upd.LastName})
	})
	mux.HandleFunc("POST /users/enable-2fa", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "2FA enabled"})
	})
	f := newFixture(t, mux)
	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))

	require.NoError(t, f.auth.RequestPasswordResetOTP(ctx, "user@example.com"))
	require.NoError(t, f.auth.ResetPasswordWithOTP(ctx, "123456", "new-pass"))
	require.Error(t, f.auth.ResetPasswordWithOTP(ctx, "000000", "new-pass"))
	require.Error(t, f.auth.ResetPasswordWithOTP(ctx, "", "new-pass"))
	require.NoError(t, f.auth.ChangePassword(ctx, "password", "new-pass"))

	user, err := f.auth.UpdateProfile(ctx, domain.ProfileUpdate{FirstName: "Grace", LastName: "Hopper"})
	require.NoError(t, err)
	require.Equal(t, "Grace", user.FirstName)
	require.Equal(t, "Hopper", f.tokens.GetUser(ctx).LastName)

	msg, err := f.auth.Enable2FA(ctx)
	require.NoError(t, err)
	require.Equal(t, "2FA enabled", msg)
	require.True(t, f.tokens.GetUser(ctx).Is2FA)
}

func TestProfileResponsesAfterLogoutAreDropped(t *testing.T) {
	ctx := context.Background()
	var f *fixture
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		f.tokens.ClearTokens(ctx)
		writeJSON(w, http.StatusOK, domain.User{ID: 1, FirstName: "Late"})
	})
	mux.HandleFunc("POST /users/enable-2fa", func(w http.ResponseWriter, r *http.Request) {
		f.tokens.RemoveToken(ctx)
		writeJSON(w, http.StatusOK, map[string]string{"message": "2FA enabled"})
	})
	f = newFixture(t, mux)

	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))
	f.tokens.SetUser(ctx, &domain.User{ID: 1, FirstName: "Ada"})
	user, err := f.auth.UpdateProfile(ctx, domain.ProfileUpdate{FirstName: "Late"})
	require.NoError(t, err)
	require.Equal(t, "Late", user.FirstName)
	require.Nil(t, f.tokens.GetUser(ctx))

	f.tokens.SetToken(ctx, accessToken(t, 1, now.Add(time.Hour)))
	f.tokens.SetUser(ctx, &domain.User{ID: 1, FirstName: "Ada"})
	_, err = f.auth.Enable2FA(ctx)
	require.NoError(t, err)
	require.False(t, f.tokens.GetUser(ctx).Is2FA)
}
