package timer

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns the current wall-clock time
type Clock func() time.Time

// ElapsedTimer derives elapsed time from an authoritative start instant.
// It never counts ticks, so reloading or reanchoring cannot drift.
type ElapsedTimer struct {
	mu      sync.RWMutex
	running bool
	anchor  time.Time
	now     Clock
}

// NewElapsedTimer creates a stopped timer; a nil clock means time.Now
func NewElapsedTimer(now Clock) *ElapsedTimer {
	if now == nil {
		now = time.Now
	}
	return &ElapsedTimer{now: now}
}

// Anchor starts (or restarts) the timer at the given instant
func (t *ElapsedTimer) Anchor(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anchor = at
	t.running = true
}

// Reset stops the timer and zeroes it
func (t *ElapsedTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anchor = time.Time{}
	t.running = false
}

// Running reports whether the timer is anchored
func (t *ElapsedTimer) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// AnchoredAt returns the anchor instant and whether the timer is running
func (t *ElapsedTimer) AnchoredAt() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.anchor, t.running
}

// Elapsed returns now minus the anchor, or zero when stopped.
// A server clock slightly ahead of ours is clamped to zero.
func (t *ElapsedTimer) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.running {
		return 0
	}
	d := t.now().Sub(t.anchor)
	if d < 0 {
		return 0
	}
	return d
}

// String formats the current elapsed time for display
func (t *ElapsedTimer) String() string {
	return Format(t.Elapsed())
}

// Format renders a duration as H:MM:SS once it reaches an hour, else 00:MM:SS
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("00:%02d:%02d", minutes, seconds)
}
