package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies where a failure happened relative to the HTTP exchange.
type ErrorKind string

const (
	// KindServer means a response arrived with a non-2xx status.
	KindServer ErrorKind = "SERVER_ERROR"
	// KindNetwork means the request was sent but no response arrived.
	KindNetwork ErrorKind = "NETWORK_ERROR"
	// KindClient means the failure happened before any request was attempted.
	KindClient ErrorKind = "CLIENT_ERROR"
)

// NetworkErrorMessage is the fixed user-facing message for transport failures.
const NetworkErrorMessage = "Network error. Please check your connection."

const (
	defaultServerMessage = "An error occurred"
	defaultClientMessage = "An unexpected error occurred"
)

// APIError is the single normalized error shape handed to state and UI layers.
type APIError struct {
	Kind    ErrorKind
	Message string
	Status  int
	Errors  []string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewServerError builds an error for a non-2xx response.
func NewServerError(status int, message string, details []string) *APIError {
	if message == "" {
		message = defaultServerMessage
	}
	if details == nil {
		details = []string{}
	}
	return &APIError{Kind: KindServer, Message: message, Status: status, Errors: details}
}

// NewNetworkError builds an error for a request that got no response.
func NewNetworkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Message: NetworkErrorMessage, Status: 0, Err: err}
}

// NewClientError builds an error raised before a request was attempted.
func NewClientError(message string) *APIError {
	if message == "" {
		message = defaultClientMessage
	}
	return &APIError{Kind: KindClient, Message: message}
}

// NewUnauthorized is the server-side 401 used by the mock API.
func NewUnauthorized(message string) *APIError {
	return NewServerError(http.StatusUnauthorized, message, nil)
}

// NewValidationError is the server-side 400 used by the mock API.
func NewValidationError(message string, details ...string) *APIError {
	return NewServerError(http.StatusBadRequest, message, details)
}

// NewNotFound is the server-side 404 used by the mock API.
func NewNotFound(resource string) *APIError {
	return NewServerError(http.StatusNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConflict is the server-side 409 used by the mock API.
func NewConflict(message string) *APIError {
	return NewServerError(http.StatusConflict, message, nil)
}

// NewInternalError hides the cause behind a generic 500.
func NewInternalError(err error) *APIError {
	return &APIError{Kind: KindServer, Message: "internal server error", Status: http.StatusInternalServerError, Errors: []string{}, Err: err}
}

// ToAPIError converts any error into an APIError. Unknown errors become client errors
// carrying their own message, so no raw transport error crosses the boundary.
func ToAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Kind: KindClient, Message: err.Error(), Err: err}
}

// Message extracts the display string from any error, falling back when empty.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := ToAPIError(err).Message; msg != "" {
		return msg
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindServer && apiErr.Status == http.StatusUnauthorized
}
