/*
Package metrics provides Prometheus metrics and health endpoints for timeclock.

All metrics are registered on the default registry at package init and exposed by
NewMux on /metrics, next to the JSON /health and /ready endpoints. The CLI serves the
mux only when `timeclock watch --metrics-addr` is given, so a kiosk running the watch
loop can be scraped.

# Metrics

Attendance:
  - timeclock_clock_in_attempts_total{outcome}: succeeded, outside_fence, location_error,
    cancelled, failed, discarded
  - timeclock_clock_out_attempts_total{outcome}
  - timeclock_session_open: 1 while a session is open
  - timeclock_session_elapsed_seconds: now minus the authoritative clock-in instant
  - timeclock_reconciliations_total{state}
  - timeclock_reconciliation_duration_seconds

Location:
  - timeclock_geofence_distance_meters: distance from the fix to the assigned location
  - timeclock_location_errors_total{reason}

API:
  - timeclock_api_requests_total{endpoint,status}
  - timeclock_api_request_duration_seconds{endpoint}
  - timeclock_selfie_upload_bytes
  - timeclock_events_dropped_total{type}

# Health

Components report through RegisterComponent/UpdateComponent. /health is unhealthy
when "api" or "auth" fails and degraded when only "locator" does. Readiness requires
"api" and "auth" to be registered and healthy.

# Usage

	timer := metrics.NewTimer()
	resp, err := httpClient.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, "clock_in")

	collector := metrics.NewCollector(controller, 5*time.Second)
	collector.Start()
	defer collector.Stop()
*/
package metrics
