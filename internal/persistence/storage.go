package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/config"
)

// ErrKeyNotFound is returned by Get when nothing is stored under the key.
var ErrKeyNotFound = errors.New("key not found")

// Storage is the client-persisted key/value area credentials live in.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory keeps values for the lifetime of the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Open builds the storage selected by cfg.Storage.Driver. The returned closer
// releases any connection held by the backend.
func Open(cfg *config.Config, logger *zap.Logger) (Storage, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory, "":
		return NewMemory(), func() {}, nil
	case config.StorageDriverFile:
		fs, err := NewFile(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case config.StorageDriverRedis:
		r := NewRedis(cfg.Redis, logger)
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
