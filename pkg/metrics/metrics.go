package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Attendance metrics
	ClockInAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeclock_clock_in_attempts_total",
			Help: "Total number of clock-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	ClockOutAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeclock_clock_out_attempts_total",
			Help: "Total number of clock-out attempts by outcome",
		},
		[]string{"outcome"},
	)

	SessionOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeclock_session_open",
			Help: "Whether the current user has an open attendance session (1 = open, 0 = closed)",
		},
	)

	SessionElapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeclock_session_elapsed_seconds",
			Help: "Seconds since the open session's authoritative clock-in instant",
		},
	)

	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeclock_reconciliations_total",
			Help: "Total number of session reconciliations by resulting state",
		},
		[]string{"state"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timeclock_reconciliation_duration_seconds",
			Help:    "Time taken to reconcile the session state with the service",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Geofence metrics
	GeofenceDistanceMeters = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timeclock_geofence_distance_meters",
			Help:    "Distance between the device fix and the assigned location",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 25000},
		},
	)

	LocationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeclock_location_errors_total",
			Help: "Total number of failed location queries by reason",
		},
		[]string{"reason"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeclock_api_requests_total",
			Help: "Total number of attendance API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeclock_api_request_duration_seconds",
			Help:    "Attendance API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeclock_events_dropped_total",
			Help: "Events not delivered because a subscriber buffer was full",
		},
		[]string{"type"},
	)

	SelfieUploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timeclock_selfie_upload_bytes",
			Help:    "Size of uploaded selfie images after downscaling",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ClockInAttemptsTotal)
	prometheus.MustRegister(ClockOutAttemptsTotal)
	prometheus.MustRegister(SessionOpen)
	prometheus.MustRegister(SessionElapsedSeconds)
	prometheus.MustRegister(ReconciliationsTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(GeofenceDistanceMeters)
	prometheus.MustRegister(LocationErrorsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SelfieUploadBytes)
	prometheus.MustRegister(EventsDroppedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds on a histogram
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed seconds on a histogram vec with labels
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
