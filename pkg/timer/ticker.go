package timer

import (
	"sync"
	"time"
)

// DefaultTickInterval is the display refresh cadence
const DefaultTickInterval = time.Second

// RenderFunc receives the freshly derived elapsed time on every tick
type RenderFunc func(running bool, elapsed time.Duration)

// Ticker repeatedly renders an ElapsedTimer until stopped
type Ticker struct {
	timer    *ElapsedTimer
	render   RenderFunc
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewTicker creates a ticker; interval <= 0 means DefaultTickInterval
func NewTicker(t *ElapsedTimer, interval time.Duration, render RenderFunc) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{
		timer:    t,
		render:   render,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the render loop
func (tk *Ticker) Start() {
	go tk.run()
}

// Stop stops the render loop and waits for it to exit
func (tk *Ticker) Stop() {
	tk.stopOnce.Do(func() {
		close(tk.stopCh)
	})
	<-tk.doneCh
}

func (tk *Ticker) run() {
	defer close(tk.doneCh)

	ticker := time.NewTicker(tk.interval)
	defer ticker.Stop()

	// Render immediately so the display is never blank for a full interval
	tk.tick()

	for {
		select {
		case <-ticker.C:
			tk.tick()
		case <-tk.stopCh:
			return
		}
	}
}

func (tk *Ticker) tick() {
	tk.render(tk.timer.Running(), tk.timer.Elapsed())
}
