package state_test

import (
	"context"
	"io"
	"sync"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/service"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

const expiredToken = "expired-token"

type fakeAuth struct {
	mu sync.Mutex

	token     string
	stored    domain.Account
	discarded int
	hydrated  int

	loginFn   func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	logoutErr error
	refreshFn func(ctx context.Context) (string, error)
	profile   *domain.User
	updateErr error
}

func (f *fakeAuth) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, creds)
	}
	if creds.Email == "user@example.com" && creds.Password == "password" {
		user := &domain.User{ID: 1, Email: creds.Email, FirstName: "Test"}
		f.mu.Lock()
		f.token = "valid-token"
		f.mu.Unlock()
		return &domain.AuthResult{AccessToken: "valid-token", User: user}, nil
	}
	return nil, apperrors.NewServerError(401, "Invalid credentials", nil)
}

func (f *fakeAuth) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	if reg.Email == "" {
		return nil, apperrors.NewServerError(400, "Email is required", nil)
	}
	return &domain.AuthResult{AccessToken: "valid-token", User: &domain.User{ID: 2, Email: reg.Email}}, nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.token = ""
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeAuth) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	if f.profile == nil {
		return nil, apperrors.NewServerError(401, "Unauthorized", nil)
	}
	return f.profile, nil
}

func (f *fakeAuth) RefreshToken(ctx context.Context) (string, error) {
	return f.refreshFn(ctx)
}

func (f *fakeAuth) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.User{ID: 1, Email: "user@example.com", FirstName: update.FirstName, LastName: update.LastName}, nil
}

func (f *fakeAuth) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if currentPassword != "password" {
		return apperrors.NewServerError(400, "Current password is incorrect", nil)
	}
	return nil
}

func (f *fakeAuth) Enable2FA(ctx context.Context) (string, error) {
	return "2FA enabled", nil
}

func (f *fakeAuth) UploadProfilePicture(ctx context.Context, filename string, file io.Reader) (string, error) {
	return "/uploads/" + filename, nil
}

func (f *fakeAuth) IsAuthenticated(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != "" && f.token != expiredToken
}

func (f *fakeAuth) AccessToken(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAuth) IsTokenExpired(ctx context.Context, raw string) bool {
	return raw == "" || raw == expiredToken
}

func (f *fakeAuth) GetCurrentUserFromToken(ctx context.Context) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hydrated++
	return f.stored
}

func (f *fakeAuth) DiscardSession(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded++
	f.token = ""
}

type fakeNotes struct {
	page      *domain.NotificationPage
	prefs     *domain.NotificationPreferences
	saved     []domain.PreferenceItem
	updateErr error
	fetchErr  error
}

func (f *fakeNotes) GetNotifications(ctx context.Context, params service.ListParams) (*domain.NotificationPage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.page, nil
}

func (f *fakeNotes) GetPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	if f.prefs == nil {
		return nil, apperrors.NewServerError(404, "", nil)
	}
	return f.prefs, nil
}

func (f *fakeNotes) UpdatePreferences(ctx context.Context, items []domain.PreferenceItem) ([]domain.PreferenceItem, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.saved = items
	return items, nil
}

func (f *fakeNotes) MarkAsRead(ctx context.Context, id int64) (*domain.Notification, error) {
	return &domain.Notification{ID: id, Status: domain.StatusRead}, nil
}

func (f *fakeNotes) MarkAllAsRead(ctx context.Context) ([]domain.Notification, error) {
	return nil, nil
}
