package mockapi

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/dto"
	"github.com/spec-kit/rental-session/internal/auth"
	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/repository"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

const invalidCredentials = "Invalid email or password"

// Accounts implements login, signup, token refresh, password reset and profile edits.
type Accounts struct {
	cfg     config.AuthConfig
	users   repository.UserRepository
	resets  repository.PasswordResetRepository
	refresh repository.RefreshTokenRepository
	tokens  *auth.TokenManager
	now     func() time.Time
	logger  *zap.Logger
}

func (a *Accounts) timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}

// CreateUser stores a new active account with a hashed password.
func (a *Accounts) CreateUser(ctx context.Context, req dto.SignupRequest, role string) (*domain.User, error) {
	var missing []string
	if strings.TrimSpace(req.FirstName) == "" {
		missing = append(missing, "fName is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email is required")
	}
	if req.Password == "" {
		missing = append(missing, "password is required")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("Validation failed", missing...)
	}
	if !req.IsTermsAccepted {
		return nil, apperrors.NewValidationError("You must accept the terms and conditions")
	}

	hash, err := auth.HashPassword(req.Password, a.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := a.timestamp()
	rec := &repository.UserRecord{
		User: domain.User{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           strings.TrimSpace(req.Email),
			Phone:           req.Phone,
			Role:            role,
			IsActive:        true,
			IsTermsAccepted: true,
			IsVerified:      true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		PasswordHash: hash,
	}
	if err := a.users.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Email already registered")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &rec.User, nil
}

// Signup registers a user and opens a session for it.
func (a *Accounts) Signup(ctx context.Context, req dto.SignupRequest) (*dto.SessionResponse, error) {
	user, err := a.CreateUser(ctx, req, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return a.openSession(ctx, user)
}

// Login verifies credentials and opens a session.
func (a *Accounts) Login(ctx context.Context, req dto.LoginRequest) (*dto.SessionResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("Email and password are required")
	}
	rec, err := a.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(rec.PasswordHash, req.Password); err != nil {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}
	if !rec.User.IsActive {
		return nil, apperrors.NewServerError(http.StatusForbidden, "Account is disabled", nil)
	}

	last := a.timestamp()
	rec.User.LastLogin = &last
	if err := a.users.Update(ctx, rec); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return a.openSession(ctx, &rec.User)
}

func (a *Accounts) openSession(ctx context.Context, user *domain.User) (*dto.SessionResponse, error) {
	access, _, err := a.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh := repository.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: a.now().Add(a.cfg.RefreshTokenTTL()),
	}
	if err := a.refresh.Create(ctx, refresh); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	a.logger.Info("session opened", zap.Int64("user_id", user.ID))
	return &dto.SessionResponse{AccessToken: access, RefreshToken: refresh.Token, User: user}, nil
}

// Refresh trades a refresh token for a new access token.
func (a *Accounts) Refresh(ctx context.Context, token string) (*dto.RefreshResponse, error) {
	if token == "" {
		return nil, apperrors.NewValidationError("refreshToken is required")
	}
	stored, err := a.refresh.Get(ctx, token)
	if err != nil || !a.now().Before(stored.ExpiresAt) {
		return nil, apperrors.NewUnauthorized("Invalid or expired refresh token")
	}
	rec, err := a.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Invalid or expired refresh token")
	}
	access, _, err := a.tokens.GenerateToken(&rec.User)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &dto.RefreshResponse{AccessToken: access}, nil
}

// Logout revokes every refresh token of the user.
func (a *Accounts) Logout(ctx context.Context, userID int64) error {
	if err := a.refresh.RevokeUser(ctx, userID); err != nil {
		return apperrors.NewInternalError(err)
	}
	a.logger.Info("session closed", zap.Int64("user_id", userID))
	return nil
}

// RequestResetOTP issues a six digit code. Delivery is a log line.
func (a *Accounts) RequestResetOTP(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", apperrors.NewValidationError("Email is required")
	}
	rec, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NewNotFound("User")
		}
		return "", apperrors.NewInternalError(err)
	}

	for {
		code, err := sixDigits()
		if err != nil {
			return "", apperrors.NewInternalError(err)
		}
		otp := &repository.PasswordResetOTP{
			UserID:    rec.User.ID,
			Code:      code,
			ExpiresAt: a.now().Add(a.cfg.OTPTTL()),
			CreatedAt: a.now(),
		}
		err = a.resets.Create(ctx, otp)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return "", apperrors.NewInternalError(err)
		}
		a.logger.Info("password reset otp issued", zap.String("email", rec.User.Email), zap.String("otp", code))
		return code, nil
	}
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetPassword sets a new password with a valid unused code.
func (a *Accounts) ResetPassword(ctx context.Context, code, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("newPassword is required")
	}
	otp, err := a.resets.GetByCode(ctx, code)
	if err != nil || otp.UsedAt != nil || !a.now().Before(otp.ExpiresAt) {
		return apperrors.NewValidationError("Invalid or expired OTP")
	}
	rec, err := a.users.GetByID(ctx, otp.UserID)
	if err != nil {
		return apperrors.NewValidationError("Invalid or expired OTP")
	}
	if err := a.setPassword(ctx, rec, newPassword); err != nil {
		return err
	}
	if err := a.resets.MarkUsed(ctx, code, a.now()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return a.refresh.RevokeUser(ctx, rec.User.ID)
}

// ChangePassword replaces the password after checking the current one.
func (a *Accounts) ChangePassword(ctx context.Context, userID int64, req dto.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("currentPassword and newPassword are required")
	}
	rec, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.NewNotFound("User")
	}
	if err := auth.ComparePassword(rec.PasswordHash, req.CurrentPassword); err != nil {
		return apperrors.NewValidationError("Current password is incorrect")
	}
	return a.setPassword(ctx, rec, req.NewPassword)
}

func (a *Accounts) setPassword(ctx context.Context, rec *repository.UserRecord, password string) error {
	hash, err := auth.HashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	rec.PasswordHash = hash
	rec.User.UpdatedAt = a.timestamp()
	if err := a.users.Update(ctx, rec); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Profile returns the stored user.
func (a *Accounts) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	rec, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewNotFound("User")
	}
	return &rec.User, nil
}

// UpdateProfile saves editable profile fields.
func (a *Accounts) UpdateProfile(ctx context.Context, userID int64, req dto.ProfileUpdateRequest) (*domain.User, error) {
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, apperrors.NewValidationError("Validation failed", "fName is required")
	}
	return a.modify(ctx, userID, func(u *domain.User) {
		u.FirstName = req.FirstName
		u.LastName = req.LastName
		u.Phone = req.Phone
	})
}

// SetPicture records an uploaded picture and returns its public URL.
func (a *Accounts) SetPicture(ctx context.Context, userID int64, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
	default:
		return "", apperrors.NewValidationError("Unsupported image type")
	}
	url := "/uploads/profile/" + uuid.NewString() + ext
	if _, err := a.modify(ctx, userID, func(u *domain.User) { u.Picture = &url }); err != nil {
		return "", err
	}
	return url, nil
}

// Enable2FA turns on two-factor authentication.
func (a *Accounts) Enable2FA(ctx context.Context, userID int64) error {
	_, err := a.modify(ctx, userID, func(u *domain.User) { u.Is2FA = true })
	return err
}

func (a *Accounts) modify(ctx context.Context, userID int64, fn func(*domain.User)) (*domain.User, error) {
	rec, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewNotFound("User")
	}
	fn(&rec.User)
	rec.User.UpdatedAt = a.timestamp()
	if err := a.users.Update(ctx, rec); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &rec.User, nil
}
