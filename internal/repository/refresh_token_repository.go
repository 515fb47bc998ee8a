package repository

import (
	"context"
	"sync"
	"time"
)

// RefreshToken is an opaque long-lived credential bound to one user.
type RefreshToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// RefreshTokenRepository stores issued refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token RefreshToken) error
	Get(ctx context.Context, token string) (*RefreshToken, error)
	RevokeUser(ctx context.Context, userID int64) error
}

type refreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

// NewRefreshTokenRepository constructs repository.
func NewRefreshTokenRepository() RefreshTokenRepository {
	return &refreshTokenRepository{tokens: make(map[string]RefreshToken)}
}

func (r *refreshTokenRepository) Create(_ context.Context, token RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *refreshTokenRepository) Get(_ context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *refreshTokenRepository) RevokeUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}
