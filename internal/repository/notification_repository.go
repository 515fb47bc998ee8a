package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/rental-session/internal/domain"
)

// NotificationRepository stores notifications and per-user preferences.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	Update(ctx context.Context, n *domain.Notification) error
	Delete(ctx context.Context, userID, id int64) error
	Get(ctx context.Context, userID, id int64) (*domain.Notification, error)
	// ListByUser returns the user's notifications newest first plus the total count.
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, int64, error)
	AllByUser(ctx context.Context, userID int64) ([]domain.Notification, error)

	GetPreferences(ctx context.Context, userID int64) ([]domain.PreferenceItem, error)
	SavePreferences(ctx context.Context, userID int64, items []domain.PreferenceItem) error
}

type notificationRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Notification
	prefs  map[int64][]domain.PreferenceItem
}

// NewNotificationRepository returns an in-memory implementation.
func NewNotificationRepository() NotificationRepository {
	return &notificationRepository{
		items: make(map[int64]domain.Notification),
		prefs: make(map[int64][]domain.PreferenceItem),
	}
}

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	r.items[n.ID] = *n
	return nil
}

func (r *notificationRepository) Update(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[n.ID]
	if !ok || old.UserID != n.UserID {
		return ErrNotFound
	}
	r.items[n.ID] = *n
	return nil
}

func (r *notificationRepository) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *notificationRepository) Get(_ context.Context, userID, id int64) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (r *notificationRepository) AllByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Notification, 0)
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	// ids grow monotonically, so descending id is newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, int64, error) {
	all, err := r.AllByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.Notification{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *notificationRepository) GetPreferences(_ context.Context, userID int64) ([]domain.PreferenceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items, ok := r.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]domain.PreferenceItem(nil), items...), nil
}

func (r *notificationRepository) SavePreferences(_ context.Context, userID int64, items []domain.PreferenceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[userID] = append([]domain.PreferenceItem(nil), items...)
	return nil
}
