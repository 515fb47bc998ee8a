package dto

import "github.com/spec-kit/rental-session/internal/domain"

// DataResponse wraps a payload in {data}.
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// PreferencesRequest payload for PATCH /notifications/preferences.
type PreferencesRequest struct {
	Preferences []domain.PreferenceItem `json:"preferences"`
}

// CreateNotificationRequest payload for POST /notifications.
type CreateNotificationRequest struct {
	UserID    int64                   `json:"userId"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Type      domain.NotificationType `json:"type"`
	ActionURL *string                 `json:"actionUrl"`
}
