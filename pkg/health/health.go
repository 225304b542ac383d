package health

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker probes one dependency of the client
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Component is the metrics component the result is reported under
	Component() string
}

// Config controls how often checks run and when a component flips unhealthy
type Config struct {
	// Interval is the time between health checks
	Interval time.Duration

	// Timeout is the maximum time to wait for a health check to complete
	Timeout time.Duration

	// Retries is the number of consecutive failures before marking as unhealthy
	Retries int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
		Retries:  3,
	}
}

// Status tracks the current health of one component
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastResult           Result
	Healthy              bool
}

// NewStatus creates a Status that assumes health until proven otherwise
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update folds a new result into the status
func (s *Status) Update(result Result, config Config) {
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= config.Retries {
		s.Healthy = false
	}
}

// Monitor runs checkers periodically and publishes their status to the
// metrics health registry
type Monitor struct {
	config   Config
	checkers []Checker

	mu       sync.RWMutex
	statuses map[string]*Status

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor for the given checkers
func NewMonitor(config Config, checkers ...Checker) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Retries <= 0 {
		config.Retries = 1
	}

	statuses := make(map[string]*Status, len(checkers))
	for _, c := range checkers {
		statuses[c.Component()] = NewStatus()
	}

	return &Monitor{
		config:   config,
		checkers: checkers,
		statuses: statuses,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one round immediately and then one per interval until Stop
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		m.CheckAll(context.Background())
		for {
			select {
			case <-ticker.C:
				m.CheckAll(context.Background())
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop stops the periodic checks. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}

// CheckAll runs every checker once and returns the raw results by component
func (m *Monitor) CheckAll(ctx context.Context) map[string]Result {
	results := make(map[string]Result, len(m.checkers))
	for _, c := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
		result := c.Check(checkCtx)
		cancel()

		results[c.Component()] = result
		m.record(c.Component(), result)
	}
	return results
}

func (m *Monitor) record(component string, result Result) {
	m.mu.Lock()
	status, ok := m.statuses[component]
	if !ok {
		status = NewStatus()
		m.statuses[component] = status
	}
	wasHealthy := status.Healthy
	status.Update(result, m.config)
	healthy := status.Healthy
	m.mu.Unlock()

	metrics.UpdateComponent(component, healthy, result.Message)

	if wasHealthy != healthy {
		logger := log.WithComponent("health")
		if healthy {
			logger.Info().Str("check", component).Msg("Component recovered")
		} else {
			logger.Warn().Str("check", component).Str("reason", result.Message).Msg("Component unhealthy")
		}
	}
}

// Healthy reports the folded status of a component; unknown components are healthy
func (m *Monitor) Healthy(component string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[component]
	return !ok || status.Healthy
}
