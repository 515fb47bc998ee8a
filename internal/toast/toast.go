package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/config"
)

// Type is the visual kind of a toast.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

const (
	DefaultMax      = 5
	DefaultDuration = 5 * time.Second
)

// Toast is one transient message. A zero Duration never auto-dismisses.
type Toast struct {
	ID        string
	Type      Type
	Title     string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// Timer is a pending dismissal.
type Timer interface {
	Stop() bool
}

// Clock schedules dismissals.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Queue holds the visible toasts, newest first.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
	timers map[string]Timer

	max             int
	defaultDuration time.Duration
	clock           Clock
	onChange        func([]Toast)
	logger          *zap.Logger
}

type Option func(*Queue)

// WithMax caps the number of visible toasts.
func WithMax(n int) Option {
	return func(q *Queue) {
		q.max = n
	}
}

// WithDefaultDuration sets the duration used when Add gets none.
func WithDefaultDuration(d time.Duration) Option {
	return func(q *Queue) {
		q.defaultDuration = d
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

// WithOnChange registers a callback receiving the list after every change.
func WithOnChange(fn func([]Toast)) Option {
	return func(q *Queue) {
		q.onChange = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// FromConfig turns toast configuration into options.
func FromConfig(cfg config.ToastConfig) []Option {
	return []Option{WithMax(cfg.MaxToasts), WithDefaultDuration(cfg.DefaultDuration())}
}

// NewQueue builds an empty queue.
func NewQueue(options ...Option) *Queue {
	q := &Queue{
		timers:          make(map[string]Timer),
		max:             DefaultMax,
		defaultDuration: DefaultDuration,
		clock:           realClock{},
	}
	for _, opt := range options {
		opt(q)
	}
	if q.max <= 0 {
		q.max = DefaultMax
	}
	if q.logger == nil {
		q.logger = zap.NewNop()
	}
	return q
}

type addConfig struct {
	duration *time.Duration
}

// AddOption adjusts a single toast.
type AddOption func(*addConfig)

// WithDuration sets how long the toast stays; 0 keeps it until removed.
func WithDuration(d time.Duration) AddOption {
	return func(c *addConfig) {
		c.duration = &d
	}
}

// Persistent keeps the toast until it is removed.
func Persistent() AddOption {
	return WithDuration(0)
}

// Add shows a toast and returns its id.
func (q *Queue) Add(typ Type, title, message string, options ...AddOption) string {
	var cfg addConfig
	for _, opt := range options {
		opt(&cfg)
	}

	t := Toast{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Duration:  q.defaultDuration,
		CreatedAt: q.clock.Now(),
	}
	if cfg.duration != nil {
		t.Duration = *cfg.duration
	}

	q.mu.Lock()
	q.toasts = append([]Toast{t}, q.toasts...)
	for len(q.toasts) > q.max {
		dropped := q.toasts[len(q.toasts)-1]
		q.toasts = q.toasts[:len(q.toasts)-1]
		q.stopTimerLocked(dropped.ID)
	}
	if t.Duration > 0 {
		id := t.ID
		q.timers[id] = q.clock.AfterFunc(t.Duration, func() { q.expire(id) })
	}
	snapshot := q.listLocked()
	q.mu.Unlock()

	q.logger.Debug("toast added", zap.String("type", string(typ)), zap.String("title", title))
	q.notify(snapshot)
	return t.ID
}

// Remove dismisses one toast. Other toasts keep their timers.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	removed := q.removeLocked(id)
	snapshot := q.listLocked()
	q.mu.Unlock()
	if removed {
		q.notify(snapshot)
	}
}

// ClearAll dismisses every toast.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	for id := range q.timers {
		q.stopTimerLocked(id)
	}
	q.toasts = nil
	q.mu.Unlock()
	q.notify(nil)
}

// List returns the visible toasts, newest first.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.listLocked()
}

// Success shows a success toast.
func (q *Queue) Success(title, message string, options ...AddOption) string {
	return q.Add(TypeSuccess, title, message, options...)
}

// Error shows an error toast.
func (q *Queue) Error(title, message string, options ...AddOption) string {
	return q.Add(TypeError, title, message, options...)
}

// Warning shows a warning toast.
func (q *Queue) Warning(title, message string, options ...AddOption) string {
	return q.Add(TypeWarning, title, message, options...)
}

// Info shows an info toast.
func (q *Queue) Info(title, message string, options ...AddOption) string {
	return q.Add(TypeInfo, title, message, options...)
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	delete(q.timers, id)
	removed := q.removeLocked(id)
	snapshot := q.listLocked()
	q.mu.Unlock()
	if removed {
		q.notify(snapshot)
	}
}

func (q *Queue) removeLocked(id string) bool {
	q.stopTimerLocked(id)
	for i := range q.toasts {
		if q.toasts[i].ID == id {
			q.toasts = append(q.toasts[:i:i], q.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) stopTimerLocked(id string) {
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
}

func (q *Queue) listLocked() []Toast {
	return append([]Toast(nil), q.toasts...)
}

func (q *Queue) notify(list []Toast) {
	if q.onChange != nil {
		q.onChange(list)
	}
}
