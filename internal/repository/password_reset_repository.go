package repository

import (
	"context"
	"sync"
	"time"
)

// PasswordResetOTP is a one-time code issued for a password reset.
type PasswordResetOTP struct {
	UserID    int64
	Code      string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// PasswordResetRepository manages reset codes.
type PasswordResetRepository interface {
	Create(ctx context.Context, otp *PasswordResetOTP) error
	GetByCode(ctx context.Context, code string) (*PasswordResetOTP, error)
	MarkUsed(ctx context.Context, code string, at time.Time) error
}

type passwordResetRepository struct {
	mu     sync.Mutex
	byCode map[string]PasswordResetOTP
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository() PasswordResetRepository {
	return &passwordResetRepository{byCode: make(map[string]PasswordResetOTP)}
}

func (r *passwordResetRepository) Create(_ context.Context, otp *PasswordResetOTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCode[otp.Code]; exists {
		return ErrDuplicate
	}
	r.byCode[otp.Code] = *otp
	return nil
}

func (r *passwordResetRepository) GetByCode(_ context.Context, code string) (*PasswordResetOTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &otp, nil
}

func (r *passwordResetRepository) MarkUsed(_ context.Context, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.byCode[code]
	if !ok {
		return ErrNotFound
	}
	otp.UsedAt = &at
	r.byCode[code] = otp
	return nil
}
