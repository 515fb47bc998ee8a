package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/repository"
)

func TestUserEmailIsUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository()

	first := &repository.UserRecord{User: domain.User{Email: "Renter@Example.com"}}
	require.NoError(t, repo.Create(ctx, first))
	require.Equal(t, int64(1), first.User.ID)
	require.NotEmpty(t, first.User.UUID)

	err := repo.Create(ctx, &repository.UserRecord{User: domain.User{Email: "renter@example.com "}})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := repo.GetByEmail(ctx, "RENTER@example.com")
	require.NoError(t, err)
	require.Equal(t, first.User.ID, got.User.ID)

	_, err = repo.GetByID(ctx, 99)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserUpdateMovesEmailIndex(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository()
	rec := &repository.UserRecord{User: domain.User{Email: "old@example.com"}}
	require.NoError(t, repo.Create(ctx, rec))

	rec.User.Email = "new@example.com"
	require.NoError(t, repo.Update(ctx, rec))

	_, err := repo.GetByEmail(ctx, "old@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
	got, err := repo.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.Equal(t, rec.User.ID, got.User.ID)
}

func TestNotificationsPageNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewNotificationRepository()
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: 1, Title: title}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: 2, Title: "other"}))

	rows, total, err := repo.ListByUser(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Equal(t, "c", rows[0].Title)
	require.Equal(t, "b", rows[1].Title)

	rows, _, err = repo.ListByUser(ctx, 1, 10, 2)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.NotNil(t, rows)
}

func TestNotificationOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewNotificationRepository()
	n := &domain.Notification{UserID: 1, Title: "mine"}
	require.NoError(t, repo.Create(ctx, n))

	_, err := repo.Get(ctx, 2, n.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, 2, n.ID), repository.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, 1, n.ID))
}

func TestPasswordResetCodes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPasswordResetRepository()
	require.NoError(t, repo.Create(ctx, &repository.PasswordResetOTP{UserID: 1, Code: "123456"}))
	require.ErrorIs(t, repo.Create(ctx, &repository.PasswordResetOTP{UserID: 2, Code: "123456"}), repository.ErrDuplicate)

	otp, err := repo.GetByCode(ctx, "123456")
	require.NoError(t, err)
	require.Nil(t, otp.UsedAt)

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkUsed(ctx, "123456", at))
	otp, err = repo.GetByCode(ctx, "123456")
	require.NoError(t, err)
	require.Equal(t, at, *otp.UsedAt)
}
