package mockapi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/socket"
)

const subscriberBuffer = 32

// Hub tracks live socket subscribers per user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[chan socket.Frame]struct{}
	logger *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[int64]map[chan socket.Frame]struct{}), logger: logger}
}

// Attach registers a subscriber for userID. The returned func detaches it and
// closes the channel.
func (h *Hub) Attach(userID int64) (<-chan socket.Frame, func()) {
	ch := make(chan socket.Frame, subscriberBuffer)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan socket.Frame]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Push delivers frame to every subscriber of userID. Slow subscribers lose the frame.
func (h *Hub) Push(userID int64, frame socket.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- frame:
		default:
			h.logger.Warn("socket subscriber buffer full, dropping frame",
				zap.Int64("user_id", userID), zap.String("event", frame.Event))
		}
	}
}

// Subscribers reports how many sockets userID has open.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
