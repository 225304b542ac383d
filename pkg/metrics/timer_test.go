package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()
	require.NotNil(t, timer)
	assert.False(t, timer.start.IsZero())
	assert.Less(t, time.Since(timer.start), time.Second)
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	first := timer.Duration()
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, timer.Duration(), first)
}

func TestTimerObserveDurationVec(t *testing.T) {
	histogramVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_request_duration_seconds",
			Help:    "Test duration histogram vec",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	timer := NewTimer()
	timer.ObserveDurationVec(histogramVec, "clock_in")
	timer.ObserveDurationVec(histogramVec, "clock_in")
	timer.ObserveDurationVec(histogramVec, "clock_out")

	assert.Equal(t, 2, testutil.CollectAndCount(histogramVec))
}

type fakeSource struct {
	open    bool
	elapsed time.Duration
}

func (f fakeSource) SessionSnapshot() (bool, time.Duration) {
	return f.open, f.elapsed
}

func TestCollectorSamplesSession(t *testing.T) {
	c := NewCollector(fakeSource{open: true, elapsed: 90 * time.Second}, time.Hour)
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(SessionOpen))
	assert.Equal(t, float64(90), testutil.ToFloat64(SessionElapsedSeconds))

	c.source = fakeSource{}
	c.collect()

	assert.Equal(t, float64(0), testutil.ToFloat64(SessionOpen))
	assert.Equal(t, float64(0), testutil.ToFloat64(SessionElapsedSeconds))
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(fakeSource{open: true, elapsed: time.Minute}, 10*time.Millisecond)
	c.Start()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(SessionElapsedSeconds) == 60
	}, time.Second, 10*time.Millisecond)
	c.Stop()
}
