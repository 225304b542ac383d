package metrics

import (
	"time"
)

// SessionSource exposes the current attendance session state for sampling
type SessionSource interface {
	// SessionSnapshot reports whether a session is open and its elapsed time
	SessionSnapshot() (open bool, elapsed time.Duration)
}

// Collector periodically samples session state into gauges
type Collector struct {
	source   SessionSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source SessionSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	open, elapsed := c.source.SessionSnapshot()
	if open {
		SessionOpen.Set(1)
		SessionElapsedSeconds.Set(elapsed.Seconds())
		return
	}
	SessionOpen.Set(0)
	SessionElapsedSeconds.Set(0)
}
