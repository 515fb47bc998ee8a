package mockapi_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/api/dto"
	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/mockapi"
	"github.com/spec-kit/rental-session/internal/socket"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

var testAuth = config.AuthConfig{
	JWTSecret:              "test-secret",
	AccessTokenTTLMinutes:  60,
	RefreshTokenTTLMinutes: 60,
	OTPTTLMinutes:          10,
	BcryptCost:             4,
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newBackend(t *testing.T) (*mockapi.Backend, *domain.User, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)}
	b := mockapi.New(testAuth, nil, mockapi.WithNowFunc(c.Now))
	user, err := b.Seed(context.Background())
	require.NoError(t, err)
	return b, user, c
}

func status(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToAPIError(err).Status
}

func TestLoginIssuesVerifiableSession(t *testing.T) {
	b, user, _ := newBackend(t)
	ctx := context.Background()

	sess, err := b.Accounts.Login(ctx, dto.LoginRequest{Email: mockapi.DemoEmail, Password: mockapi.DemoPassword})
	require.NoError(t, err)
	require.Equal(t, user.ID, sess.User.ID)
	require.NotNil(t, sess.User.LastLogin)
	require.NotEmpty(t, sess.RefreshToken)

	claims, err := b.Tokens.ParseToken(sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.ID)
	require.Equal(t, mockapi.DemoEmail, claims.Email)

	_, err = b.Accounts.Login(ctx, dto.LoginRequest{Email: mockapi.DemoEmail, Password: "wrong"})
	require.Equal(t, 401, status(t, err))
	require.Equal(t, "Invalid email or password", apperrors.Message(err, ""))
}

func TestSignupValidation(t *testing.T) {
	b, _, _ := newBackend(t)
	ctx := context.Background()

	_, err := b.Accounts.Signup(ctx, dto.SignupRequest{Email: "x@y.z"})
	require.Equal(t, 400, status(t, err))
	require.ElementsMatch(t, []string{"fName is required", "password is required"}, apperrors.ToAPIError(err).Errors)

	_, err = b.Accounts.Signup(ctx, dto.SignupRequest{FirstName: "A", Email: mockapi.DemoEmail, Password: "p", IsTermsAccepted: true})
	require.Equal(t, 409, status(t, err))

	sess, err := b.Accounts.Signup(ctx, dto.SignupRequest{FirstName: "A", Email: "new@example.com", Password: "p", IsTermsAccepted: true})
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, sess.User.Role)
}

func TestRefreshAndLogout(t *testing.T) {
	b, _, c := newBackend(t)
	ctx := context.Background()
	sess, err := b.Accounts.Login(ctx, dto.LoginRequest{Email: mockapi.DemoEmail, Password: mockapi.DemoPassword})
	require.NoError(t, err)

	resp, err := b.Accounts.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	require.NoError(t, b.Accounts.Logout(ctx, sess.User.ID))
	_, err = b.Accounts.Refresh(ctx, sess.RefreshToken)
	require.Equal(t, 401, status(t, err))

	sess, err = b.Accounts.Login(ctx, dto.LoginRequest{Email: mockapi.DemoEmail, Password: mockapi.DemoPassword})
	require.NoError(t, err)
	c.now = c.now.Add(2 * time.Hour)
	_, err = b.Accounts.Refresh(ctx, sess.RefreshToken)
	require.Equal(t, 401, status(t, err))
}

func TestPasswordResetWithOTP(t *testing.T) {
	b, _, c := newBackend(t)
	ctx := context.Background()

	_, err := b.Accounts.RequestResetOTP(ctx, "nobody@example.com")
	require.Equal(t, 404, status(t, err))

	code, err := b.Accounts.RequestResetOTP(ctx, mockapi.DemoEmail)
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.NoError(t, b.Accounts.ResetPassword(ctx, code, "new-secret"))
	require.Equal(t, 400, status(t, b.Accounts.ResetPassword(ctx, code, "again")))

	_, err = b.Accounts.Login(ctx, dto.LoginRequest{Email: mockapi.DemoEmail, Password: "new-secret"})
	require.NoError(t, err)

	late, err := b.Accounts.RequestResetOTP(ctx, mockapi.DemoEmail)
	require.NoError(t, err)
	c.now = c.now.Add(11 * time.Minute)
	require.Equal(t, 400, status(t, b.Accounts.ResetPassword(ctx, late, "x")))
}

func TestProfileEdits(t *testing.T) {
	b, user, _ := newBackend(t)
	ctx := context.Background()

	require.Equal(t, 400, status(t, b.Accounts.ChangePassword(ctx, user.ID, dto.ChangePasswordRequest{CurrentPassword: "bad", NewPassword: "n"})))
	require.NoError(t, b.Accounts.ChangePassword(ctx, user.ID, dto.ChangePasswordRequest{CurrentPassword: mockapi.DemoPassword, NewPassword: "n"}))

	updated, err := b.Accounts.UpdateProfile(ctx, user.ID, dto.ProfileUpdateRequest{FirstName: "Dee", LastName: "R"})
	require.NoError(t, err)
	require.Equal(t, "Dee", updated.FirstName)

	_, err = b.Accounts.SetPicture(ctx, user.ID, "me.exe")
	require.Equal(t, 400, status(t, err))
	url, err := b.Accounts.SetPicture(ctx, user.ID, "me.PNG")
	require.NoError(t, err)
	require.Regexp(t, `^/uploads/profile/.+\.png$`, url)

	require.NoError(t, b.Accounts.Enable2FA(ctx, user.ID))
	profile, err := b.Accounts.Profile(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, profile.Is2FA)
	require.Equal(t, url, *profile.Picture)
}

func TestNotificationLifecycleReachesSubscribers(t *testing.T) {
	b, user, _ := newBackend(t)
	ctx := context.Background()

	frames, detach := b.Hub.Attach(user.ID)
	defer detach()
	require.Equal(t, 1, b.Hub.Subscribers(user.ID))

	created, err := b.Notifications.Create(ctx, dto.CreateNotificationRequest{UserID: user.ID, Title: "Booking confirmed"})
	require.NoError(t, err)
	require.Equal(t, domain.NotificationInfo, created.Type)
	require.True(t, created.IsUnread())

	f := <-frames
	require.Equal(t, socket.FrameEvent, f.Type)
	require.Equal(t, socket.EventNotification, f.Event)
	var pushed domain.Notification
	require.NoError(t, json.Unmarshal(f.Data, &pushed))
	require.Equal(t, created.ID, pushed.ID)

	_, err = b.Notifications.MarkAsRead(ctx, user.ID, created.ID)
	require.NoError(t, err)
	f = <-frames
	require.Equal(t, socket.EventNotificationUpdated, f.Event)

	require.NoError(t, b.Notifications.Delete(ctx, user.ID, created.ID))
	f = <-frames
	require.Equal(t, socket.EventNotificationDeleted, f.Event)
	require.JSONEq(t, `{"id":`+jsonInt(created.ID)+`}`, string(f.Data))

	page, err := b.Notifications.List(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Count)
	require.Equal(t, "Welcome", page.Rows[0].Title)

	detach()
	require.Equal(t, 0, b.Hub.Subscribers(user.ID))
}

func jsonInt(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestMarkAllAsReadOnlyTouchesUnread(t *testing.T) {
	b, user, _ := newBackend(t)
	ctx := context.Background()
	_, err := b.Notifications.Create(ctx, dto.CreateNotificationRequest{UserID: user.ID, Title: "Second"})
	require.NoError(t, err)

	frames, detach := b.Hub.Attach(user.ID)
	defer detach()

	all, err := b.Notifications.MarkAllAsRead(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, n := range all {
		require.Equal(t, domain.StatusRead, n.Status)
	}
	require.Len(t, frames, 2)

	_, err = b.Notifications.MarkAllAsRead(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, frames, 2)
}

func TestPreferencesDefaultThenSaved(t *testing.T) {
	b, user, _ := newBackend(t)
	ctx := context.Background()

	prefs, err := b.Notifications.Preferences(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, mockapi.DefaultPreferences(), prefs.Preferences)

	items := []domain.PreferenceItem{{Title: "Messages", Enabled: false, Channels: domain.Channels{Email: true}}}
	saved, err := b.Notifications.SavePreferences(ctx, user.ID, items)
	require.NoError(t, err)
	require.Equal(t, domain.Channels{}, saved[0].Channels)

	prefs, err = b.Notifications.Preferences(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, saved, prefs.Preferences)
}
