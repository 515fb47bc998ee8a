package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/rental-session/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique field is already taken.
var ErrDuplicate = errors.New("duplicate record")

// UserRecord is a stored account: the public profile plus its password hash.
type UserRecord struct {
	User         domain.User
	PasswordHash string
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, rec *UserRecord) error
	Update(ctx context.Context, rec *UserRecord) error
	GetByID(ctx context.Context, id int64) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
}

type userRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]UserRecord
	byEmail map[string]int64
}

// NewUserRepository returns an in-memory implementation.
func NewUserRepository() UserRepository {
	return &userRepository{
		byID:    make(map[int64]UserRecord),
		byEmail: make(map[string]int64),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(_ context.Context, rec *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(rec.User.Email)
	if _, exists := r.byEmail[email]; exists {
		return ErrDuplicate
	}
	r.nextID++
	rec.User.ID = r.nextID
	if rec.User.UUID == "" {
		rec.User.UUID = uuid.NewString()
	}
	r.byID[rec.User.ID] = *rec
	r.byEmail[email] = rec.User.ID
	return nil
}

func (r *userRepository) Update(_ context.Context, rec *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[rec.User.ID]
	if !ok {
		return ErrNotFound
	}
	oldEmail := normalizeEmail(old.User.Email)
	newEmail := normalizeEmail(rec.User.Email)
	if oldEmail != newEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return ErrDuplicate
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[newEmail] = rec.User.ID
	}
	r.byID[rec.User.ID] = *rec
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
