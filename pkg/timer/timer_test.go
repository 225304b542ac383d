package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, "00:00:00"},
		{5 * time.Second, "00:00:05"},
		{59 * time.Second, "00:00:59"},
		{10*time.Minute + 7*time.Second, "00:10:07"},
		{3661 * time.Second, "1:01:01"},
		{25*time.Hour + 30*time.Second, "25:00:30"},
		{1500 * time.Millisecond, "00:00:01"},
		{-time.Second, "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.in))
		})
	}
}

func TestElapsedTimerAnchor(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	timer := NewElapsedTimer(clock.Now)

	assert.False(t, timer.Running())
	assert.Equal(t, time.Duration(0), timer.Elapsed())

	timer.Anchor(clock.Now())
	clock.Advance(5 * time.Second)
	assert.True(t, timer.Running())
	assert.Equal(t, "00:00:05", timer.String())

	// Reanchoring to an earlier instant reflects the new anchor immediately
	timer.Anchor(clock.Now().Add(-3661 * time.Second))
	assert.Equal(t, "1:01:01", timer.String())

	at, running := timer.AnchoredAt()
	assert.True(t, running)
	assert.Equal(t, clock.Now().Add(-3661*time.Second), at)
}

func TestElapsedTimerReset(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	timer := NewElapsedTimer(clock.Now)
	timer.Anchor(clock.Now().Add(-time.Hour))

	timer.Reset()
	clock.Advance(time.Minute)

	assert.False(t, timer.Running())
	assert.Equal(t, time.Duration(0), timer.Elapsed())
	assert.Equal(t, "00:00:00", timer.String())
}

func TestElapsedTimerFutureAnchor(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	timer := NewElapsedTimer(clock.Now)
	timer.Anchor(clock.Now().Add(2 * time.Second))
	assert.Equal(t, time.Duration(0), timer.Elapsed())
}

func TestTickerRendersDerivedTime(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	timer := NewElapsedTimer(clock.Now)
	timer.Anchor(clock.Now().Add(-42 * time.Second))

	var mu sync.Mutex
	var renders []time.Duration
	tk := NewTicker(timer, 5*time.Millisecond, func(running bool, elapsed time.Duration) {
		assert.True(t, running)
		mu.Lock()
		renders = append(renders, elapsed)
		mu.Unlock()
	})
	tk.Start()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(renders) >= 3
	}, time.Second, 5*time.Millisecond)
	tk.Stop()
	tk.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, r := range renders {
		assert.Equal(t, 42*time.Second, r)
	}
}
