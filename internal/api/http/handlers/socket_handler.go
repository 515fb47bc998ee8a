package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/auth"
	"github.com/spec-kit/rental-session/internal/mockapi"
	"github.com/spec-kit/rental-session/internal/socket"
)

const (
	handshakeWait = 10 * time.Second
	writeWait     = 5 * time.Second
)

// SocketHandler serves the notification socket. The first client frame must
// be an auth frame carrying a valid access token.
type SocketHandler struct {
	tokens *auth.TokenManager
	hub    *mockapi.Hub
	logger *zap.Logger
}

// NewSocketHandler constructs handler.
func NewSocketHandler(tokens *auth.TokenManager, hub *mockapi.Hub, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{tokens: tokens, hub: hub, logger: logger}
}

// Upgrade rejects plain HTTP requests on the socket route.
func (h *SocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the websocket handler.
func (h *SocketHandler) Serve() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *SocketHandler) serve(conn *websocket.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, first, err := conn.ReadMessage()
	if err != nil {
		h.logger.Debug("socket closed before auth", zap.Error(err))
		return
	}
	var hello socket.Frame
	if err := json.Unmarshal(first, &hello); err != nil || hello.Type != socket.FrameAuth || hello.Auth == nil || hello.Auth.Token == "" {
		h.reject(conn, "Authentication error")
		return
	}
	claims, err := h.tokens.ParseToken(hello.Auth.Token)
	if err != nil {
		h.reject(conn, "Authentication error")
		return
	}

	// attach before acknowledging so nothing published after connect is missed
	frames, detach := h.hub.Attach(claims.ID)
	defer detach()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(socket.Frame{Type: socket.FrameConnect}); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	logger := h.logger.With(zap.Int64("user_id", claims.ID))
	logger.Info("socket authenticated")

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			logger.Info("socket client left")
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				logger.Warn("socket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *SocketHandler) reject(conn *websocket.Conn, message string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(socket.Frame{Type: socket.FrameConnectError, Message: message})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message))
}
