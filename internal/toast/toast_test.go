package toast_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/rental-session/internal/config"
	"github.com/spec-kit/rental-session/internal/toast"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) toast.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.at.After(c.now) {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

func titles(list []toast.Toast) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.Title)
	}
	return out
}

func TestDefaultDurationAutoDismisses(t *testing.T) {
	clock := newFakeClock()
	q := toast.NewQueue(toast.WithClock(clock))

	q.Success("Saved", "")
	clock.Advance(4999 * time.Millisecond)
	require.Len(t, q.List(), 1)
	clock.Advance(time.Millisecond)
	require.Empty(t, q.List())
}

func TestZeroDurationPersists(t *testing.T) {
	clock := newFakeClock()
	q := toast.NewQueue(toast.WithClock(clock))

	id := q.Error("Offline", "", toast.Persistent())
	clock.Advance(time.Hour)
	require.Len(t, q.List(), 1)

	q.Remove(id)
	require.Empty(t, q.List())
}

func TestCustomDurationRemovedOnTime(t *testing.T) {
	clock := newFakeClock()
	q := toast.NewQueue(toast.WithClock(clock))

	q.Info("Short", "", toast.WithDuration(2000*time.Millisecond))
	q.Info("Long", "", toast.WithDuration(4000*time.Millisecond))

	clock.Advance(2 * time.Second)
	require.Equal(t, []string{"Long"}, titles(q.List()))
	clock.Advance(2 * time.Second)
	require.Empty(t, q.List())
}

func TestRemoveKeepsOtherTimers(t *testing.T) {
	clock := newFakeClock()
	q := toast.NewQueue(toast.WithClock(clock))

	first := q.Warning("First", "")
	q.Warning("Second", "", toast.WithDuration(time.Second))
	q.Remove(first)
	require.Equal(t, []string{"Second"}, titles(q.List()))

	clock.Advance(time.Second)
	require.Empty(t, q.List())
}

func TestCapDropsOldest(t *testing.T) {
	clock := newFakeClock()
	var changes int
	q := toast.NewQueue(toast.WithClock(clock), toast.WithMax(3), toast.WithOnChange(func([]toast.Toast) { changes++ }))

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		q.Info(title, "")
	}
	require.Equal(t, []string{"e", "d", "c"}, titles(q.List()))
	require.Equal(t, 5, changes)

	ids := map[string]bool{}
	for _, tt := range q.List() {
		require.False(t, ids[tt.ID])
		ids[tt.ID] = true
	}
}

func TestClearAll(t *testing.T) {
	clock := newFakeClock()
	var last []toast.Toast
	q := toast.NewQueue(toast.WithClock(clock), toast.WithOnChange(func(l []toast.Toast) { last = l }))

	q.Success("One", "")
	q.Error("Two", "", toast.Persistent())
	q.ClearAll()
	require.Empty(t, q.List())
	require.Empty(t, last)

	clock.Advance(time.Minute)
	require.Empty(t, q.List())
}

func TestFromConfig(t *testing.T) {
	clock := newFakeClock()
	opts := append(toast.FromConfig(config.ToastConfig{MaxToasts: 1, DefaultDurationMS: 100}), toast.WithClock(clock))
	q := toast.NewQueue(opts...)

	q.Info("a", "")
	q.Info("b", "")
	require.Equal(t, []string{"b"}, titles(q.List()))
	clock.Advance(100 * time.Millisecond)
	require.Empty(t, q.List())
}
