package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/api/client"
	"github.com/spec-kit/rental-session/internal/domain"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// ListParams filters a notification listing. Zero values are omitted from the query.
type ListParams struct {
	Page   int
	Limit  int
	Skip   int
	UserID int64
}

// query derives page from skip when only skip and limit are given. The backend
// pages by page and limit, so skip must land on a page boundary.
func (p ListParams) query() (string, error) {
	page := p.Page
	if page == 0 && p.Skip > 0 {
		if p.Limit <= 0 {
			return "", apperrors.NewClientError("skip requires a limit")
		}
		if p.Skip%p.Limit != 0 {
			return "", apperrors.NewClientError(fmt.Sprintf("skip %d is not a multiple of limit %d", p.Skip, p.Limit))
		}
		page = p.Skip/p.Limit + 1
	}
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.UserID > 0 {
		q.Set("userId", strconv.FormatInt(p.UserID, 10))
	}
	if len(q) == 0 {
		return "", nil
	}
	return "?" + q.Encode(), nil
}

// NotificationService reads and updates the signed-in user's notifications.
type NotificationService struct {
	api    *client.Client
	logger *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(api *client.Client, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{api: api, logger: logger}
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// GetNotifications returns one page of notifications.
func (n *NotificationService) GetNotifications(ctx context.Context, params ListParams) (*domain.NotificationPage, error) {
	query, err := params.query()
	if err != nil {
		return nil, err
	}
	var resp dataEnvelope[domain.NotificationPage]
	if err := n.api.Do(ctx, client.Request{
		Method:        http.MethodGet,
		Path:          "/notifications" + query,
		Authenticated: true,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Rows == nil {
		resp.Data.Rows = []domain.Notification{}
	}
	return &resp.Data, nil
}

// GetPreferences loads the preference set of userID.
func (n *NotificationService) GetPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	var raw json.RawMessage
	if err := n.api.Do(ctx, client.Request{
		Method:        http.MethodGet,
		Path:          fmt.Sprintf("/notifications/preference/%d", userID),
		Authenticated: true,
	}, &raw); err != nil {
		return nil, err
	}

	// The backend answers either bare or wrapped in {data}.
	var wrapped dataEnvelope[*domain.NotificationPreferences]
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var prefs domain.NotificationPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, err
	}
	if prefs.UserID == 0 {
		prefs.UserID = userID
	}
	return &prefs, nil
}

// UpdatePreferences replaces the preference list and returns what the backend stored.
func (n *NotificationService) UpdatePreferences(ctx context.Context, items []domain.PreferenceItem) ([]domain.PreferenceItem, error) {
	var resp dataEnvelope[[]domain.PreferenceItem]
	if err := n.api.Do(ctx, client.Request{
		Method:        http.MethodPatch,
		Path:          "/notifications/preferences",
		Body:          map[string]any{"preferences": items},
		Authenticated: true,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// MarkAsRead flags one notification read.
func (n *NotificationService) MarkAsRead(ctx context.Context, id int64) (*domain.Notification, error) {
	var resp dataEnvelope[*domain.Notification]
	if err := n.api.Do(ctx, client.Request{
		Method:        http.MethodPatch,
		Path:          fmt.Sprintf("/notifications/mark-as-read/%d", id),
		Authenticated: true,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// MarkAllAsRead flags every notification of the user read.
func (n *NotificationService) MarkAllAsRead(ctx context.Context) ([]domain.Notification, error) {
	var resp dataEnvelope[[]domain.Notification]
	if err := n.api.Do(ctx, client.Request{
		Method:        http.MethodPatch,
		Path:          "/notifications/mark-all-as-read",
		Authenticated: true,
	}, &resp); err != nil {
		return nil, err
	}
	n.logger.Debug("marked all notifications read", zap.Int("count", len(resp.Data)))
	return resp.Data, nil
}
