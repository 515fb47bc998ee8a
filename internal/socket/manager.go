package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/observability"
)

// Listener receives connection lifecycle and application events. Callbacks
// run on the connection goroutine, one at a time, and must not call back into
// the Manager.
type Listener interface {
	OnConnect()
	OnDisconnect(reason string)
	OnConnectError(message string)
	OnError(message string)
	OnEvent(name string, data json.RawMessage)
	// OnReset is called after Disconnect tore the connection down.
	OnReset()
}

// Options is the reconnection policy.
type Options struct {
	Path              string
	Reconnection      bool
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	HandshakeTimeout  time.Duration
}

// DefaultOptions matches the production client settings.
var DefaultOptions = Options{
	Path:              "/socket",
	Reconnection:      true,
	ReconnectAttempts: 5,
	ReconnectDelay:    time.Second,
	ReconnectDelayMax: 5 * time.Second,
	HandshakeTimeout:  20 * time.Second,
}

// OptionsFromConfig maps socket configuration onto Options.
func OptionsFromConfig(cfg config.SocketConfig) Options {
	return Options{
		Path:              cfg.Path,
		Reconnection:      cfg.Reconnection,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay(),
		ReconnectDelayMax: cfg.ReconnectDelayMax(),
		HandshakeTimeout:  cfg.HandshakeTimeout(),
	}
}

// backoff is the wait before reconnection attempt n (1-based).
func (o Options) backoff(n int) time.Duration {
	d := o.ReconnectDelay * time.Duration(n)
	if o.ReconnectDelayMax > 0 && d > o.ReconnectDelayMax {
		d = o.ReconnectDelayMax
	}
	return d
}

// Manager owns at most one socket connection at a time.
type Manager struct {
	opts     Options
	dialer   *websocket.Dialer
	listener Listener
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	current *instance
}

type ManagerOption func(*Manager)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) ManagerOption {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithMetrics counts socket events.
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager builds a manager reporting to listener.
func NewManager(opts Options, listener Listener, logger *zap.Logger, options ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		opts:     opts,
		listener: listener,
		logger:   logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Connect opens a connection for apiURL and token. While an instance with the
// same parameters is alive (connected or retrying) it is a no-op; any other
// instance is torn down first.
func (m *Manager) Connect(apiURL, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur := m.current; cur != nil {
		if cur.alive() && cur.apiURL == apiURL && cur.token == token {
			return
		}
		cur.close()
		m.current = nil
	}

	inst := newInstance(m, apiURL, token)
	m.current = inst
	go inst.run()
}

// Disconnect tears down the live connection, if any, and reports a reset.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.current != nil {
		m.current.close()
		m.current = nil
	}
	m.mu.Unlock()

	if m.listener != nil {
		m.listener.OnReset()
	}
}

// Sync applies the session: connected with token when authenticated,
// disconnected otherwise. A rotated token reconnects.
func (m *Manager) Sync(apiURL string, authenticated bool, token string) {
	if authenticated && token != "" {
		m.Connect(apiURL, token)
		return
	}
	m.mu.Lock()
	idle := m.current == nil
	m.mu.Unlock()
	if !idle {
		m.Disconnect()
	}
}

// Connected reports whether the current instance completed its handshake.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.isConnected()
}

// Close disconnects.
func (m *Manager) Close() {
	m.Disconnect()
}

// errHandshake marks failures before the server accepted the connection.
type errHandshake struct{ msg string }

func (e errHandshake) Error() string { return e.msg }

type instance struct {
	m      *Manager
	apiURL string
	token  string

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the fields below and is held while a callback runs, so
	// nothing is delivered once closed is set.
	mu        sync.Mutex
	closed    bool
	dead      bool
	connected bool
	conn      *websocket.Conn
}

func newInstance(m *Manager, apiURL, token string) *instance {
	ctx, cancel := context.WithCancel(context.Background())
	return &instance{m: m, apiURL: apiURL, token: token, ctx: ctx, cancel: cancel}
}

func (i *instance) alive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.closed && !i.dead
}

func (i *instance) isConnected() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.connected && !i.closed
}

func (i *instance) close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	i.connected = false
	conn := i.conn
	i.mu.Unlock()

	i.cancel()
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"), deadline)
		_ = conn.Close()
	}
}

// emit runs fn unless the instance was closed.
func (i *instance) emit(event string, fn func(Listener)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.m.metrics.RecordSocketEvent(event)
	if i.m.listener != nil {
		fn(i.m.listener)
	}
}

func (i *instance) setConn(conn *websocket.Conn) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return false
	}
	i.conn = conn
	return true
}

func (i *instance) run() {
	logger := i.m.logger.With(zap.String("api_url", i.apiURL))
	opts := i.m.opts

	endpoint, err := EndpointURL(i.apiURL, opts.Path)
	if err != nil {
		i.emit(FrameConnectError, func(l Listener) { l.OnConnectError(err.Error()) })
		i.markDead()
		return
	}

	attempt := 0
	for {
		err := i.session(endpoint, logger)
		if i.ctx.Err() != nil {
			return
		}

		var hs errHandshake
		if errors.As(err, &hs) {
			logger.Debug("socket connect failed", zap.String("reason", hs.msg))
			i.emit(FrameConnectError, func(l Listener) { l.OnConnectError(hs.msg) })
		} else {
			reason := disconnectReason(err)
			logger.Info("socket disconnected", zap.String("reason", reason))
			i.emit("disconnect", func(l Listener) { l.OnDisconnect(reason) })
			attempt = 0
		}

		if !opts.Reconnection {
			i.markDead()
			return
		}
		attempt++
		if attempt > opts.ReconnectAttempts {
			msg := fmt.Sprintf("Unable to reconnect after %d attempts", opts.ReconnectAttempts)
			logger.Warn("socket reconnection exhausted", zap.Int("attempts", opts.ReconnectAttempts))
			i.emit(FrameError, func(l Listener) { l.OnError(msg) })
			i.markDead()
			return
		}

		timer := time.NewTimer(opts.backoff(attempt))
		select {
		case <-i.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (i *instance) markDead() {
	i.mu.Lock()
	i.dead = true
	i.connected = false
	i.mu.Unlock()
}

// session dials, authenticates and pumps frames until the connection ends.
func (i *instance) session(endpoint string, logger *zap.Logger) error {
	timeout := i.m.opts.HandshakeTimeout
	dialCtx := i.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(i.ctx, timeout)
		defer cancel()
	}

	conn, _, err := i.m.dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return errHandshake{msg: err.Error()}
	}
	if !i.setConn(conn) {
		_ = conn.Close()
		return errHandshake{msg: "closed"}
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}
	if err := conn.WriteJSON(Frame{Type: FrameAuth, Auth: &AuthPayload{Token: i.token}}); err != nil {
		return errHandshake{msg: err.Error()}
	}
	var reply Frame
	if err := conn.ReadJSON(&reply); err != nil {
		return errHandshake{msg: err.Error()}
	}
	switch reply.Type {
	case FrameConnect:
	case FrameConnectError:
		msg := reply.Message
		if msg == "" {
			msg = "Authentication failed"
		}
		return errHandshake{msg: msg}
	default:
		return errHandshake{msg: fmt.Sprintf("unexpected handshake frame %q", reply.Type)}
	}
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	i.mu.Lock()
	i.connected = !i.closed
	i.mu.Unlock()
	logger.Info("socket connected")
	i.emit(FrameConnect, func(l Listener) { l.OnConnect() })

	defer func() {
		i.mu.Lock()
		i.connected = false
		i.mu.Unlock()
	}()
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		switch frame.Type {
		case FrameEvent:
			name, data := frame.Event, frame.Data
			i.emit(name, func(l Listener) { l.OnEvent(name, data) })
		case FrameError:
			msg := frame.Message
			if msg == "" {
				msg = DefaultErrorMessage
			}
			i.emit(FrameError, func(l Listener) { l.OnError(msg) })
		default:
			logger.Debug("ignoring socket frame", zap.String("type", frame.Type))
		}
	}
}

func disconnectReason(err error) string {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return "io server disconnect"
	}
	return "transport close"
}
