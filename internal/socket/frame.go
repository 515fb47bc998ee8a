package socket

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Frame types exchanged on the socket.
const (
	FrameAuth         = "auth"
	FrameConnect      = "connect"
	FrameConnectError = "connect_error"
	FrameEvent        = "event"
	FrameError        = "error"
)

// Application event names pushed by the backend.
const (
	EventNotification        = "notification"
	EventNotificationUpdated = "notification_updated"
	EventNotificationDeleted = "notification_deleted"
)

// DefaultErrorMessage is reported for error frames that carry no message.
const DefaultErrorMessage = "Socket error occurred"

// AuthPayload carries the access token in the handshake frame.
type AuthPayload struct {
	Token string `json:"token"`
}

// Frame is one JSON message on the socket. The client opens with an auth
// frame; the server answers connect or connect_error, then streams event and
// error frames.
type Frame struct {
	Type    string          `json:"type"`
	Auth    *AuthPayload    `json:"auth,omitempty"`
	Event   string          `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// EndpointURL turns the API base URL into the websocket endpoint.
func EndpointURL(apiURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("socket url %q has no host", apiURL)
	}
	if path != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return u.String(), nil
}
