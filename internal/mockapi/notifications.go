package mockapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/dto"
	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/repository"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// DefaultPreferences is handed to users who never saved any.
func DefaultPreferences() []domain.PreferenceItem {
	on := domain.PreferenceItem{}.WithEnabled(true)
	booking, messages, promos := on, on, domain.PreferenceItem{}
	booking.Title, booking.Description = "Booking updates", "Confirmations, changes and reminders for your rentals"
	messages.Title, messages.Description = "Messages", "New messages from hosts and renters"
	promos.Title, promos.Description = "Promotions", "Deals and news about the platform"
	return []domain.PreferenceItem{booking, messages, promos}
}

// Notifications owns notification records and publishes their lifecycle events.
type Notifications struct {
	repo       repository.NotificationRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
	logger     *zap.Logger
}

// List returns one page of the user's notifications, newest first.
func (n *Notifications) List(ctx context.Context, userID int64, page, limit int) (*domain.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	}
	rows, total, err := n.repo.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.NotificationPage{Count: total, Rows: rows}, nil
}

// Create stores a notification and fans it out to the user's sockets.
func (n *Notifications) Create(ctx context.Context, req dto.CreateNotificationRequest) (*domain.Notification, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidationError("Validation failed", "title is required")
	}
	typ := req.Type
	switch typ {
	case "":
		typ = domain.NotificationInfo
	case domain.NotificationInfo, domain.NotificationSuccess, domain.NotificationWarning,
		domain.NotificationError, domain.NotificationAlert:
	default:
		return nil, apperrors.NewValidationError("Validation failed", "unknown notification type")
	}
	rec, err := n.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperrors.NewNotFound("User")
	}

	now := n.now().UTC().Format(time.RFC3339)
	item := &domain.Notification{
		UserID:    req.UserID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      typ,
		Status:    domain.StatusUnread,
		ActionURL: req.ActionURL,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		User: &domain.NotificationUser{
			ID:        rec.User.ID,
			FirstName: rec.User.FirstName,
			LastName:  rec.User.LastName,
		},
	}
	if err := n.repo.Create(ctx, item); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	n.publish(ctx, events.EventNotificationCreated, events.NotificationPayload{UserID: item.UserID, Notification: *item})
	return item, nil
}

// MarkAsRead flags one notification read.
func (n *Notifications) MarkAsRead(ctx context.Context, userID, id int64) (*domain.Notification, error) {
	item, err := n.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Notification")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if item.Status != domain.StatusRead {
		if err := n.markRead(ctx, item); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// MarkAllAsRead flags every unread notification of the user read.
func (n *Notifications) MarkAllAsRead(ctx context.Context, userID int64) ([]domain.Notification, error) {
	all, err := n.repo.AllByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for i := range all {
		if all[i].Status == domain.StatusRead {
			continue
		}
		if err := n.markRead(ctx, &all[i]); err != nil {
			return nil, err
		}
	}
	return all, nil
}

func (n *Notifications) markRead(ctx context.Context, item *domain.Notification) error {
	item.Status = domain.StatusRead
	item.UpdatedAt = n.now().UTC().Format(time.RFC3339)
	if err := n.repo.Update(ctx, item); err != nil {
		return apperrors.NewInternalError(err)
	}
	n.publish(ctx, events.EventNotificationUpdated, events.NotificationPayload{UserID: item.UserID, Notification: *item})
	return nil
}

// Delete removes a notification.
func (n *Notifications) Delete(ctx context.Context, userID, id int64) error {
	if err := n.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Notification")
		}
		return apperrors.NewInternalError(err)
	}
	n.publish(ctx, events.EventNotificationDeleted, events.NotificationDeletedPayload{UserID: userID, NotificationID: id})
	return nil
}

// Preferences returns the user's saved preferences or the defaults.
func (n *Notifications) Preferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	items, err := n.repo.GetPreferences(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		items = DefaultPreferences()
	} else if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.NotificationPreferences{UserID: userID, Preferences: items}, nil
}

// SavePreferences replaces the user's preference list.
func (n *Notifications) SavePreferences(ctx context.Context, userID int64, items []domain.PreferenceItem) ([]domain.PreferenceItem, error) {
	if items == nil {
		return nil, apperrors.NewValidationError("Validation failed", "preferences is required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			return nil, apperrors.NewValidationError("Validation failed", "preference title is required")
		}
		// a disabled preference never delivers on any channel
		if !item.Enabled {
			items[i] = item.WithEnabled(false)
		}
	}
	if err := n.repo.SavePreferences(ctx, userID, items); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

func (n *Notifications) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if err := n.dispatcher.Publish(ctx, events.New(eventType, payload)); err != nil {
		n.logger.Warn("publish notification event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
