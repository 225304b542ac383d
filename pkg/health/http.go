package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/timeclock/pkg/metrics"
)

// APIChecker probes the attendance service. Any answer below 500 counts as
// reachable: an unauthenticated probe of a protected route returns 401.
type APIChecker struct {
	// URL is the probed endpoint, e.g. "http://localhost:5000/api/auth/me"
	URL string

	// Client is the HTTP client to use
	Client *http.Client
}

// NewAPIChecker probes the /auth/me route under the given API base URL
func NewAPIChecker(baseURL string) *APIChecker {
	return &APIChecker{
		URL:    strings.TrimRight(baseURL, "/") + "/auth/me",
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Check performs the probe
func (h *APIChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return failed(start, "failed to create request: %v", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return failed(start, "request failed: %v", err)
	}
	defer resp.Body.Close()

	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return Result{
		Healthy:   resp.StatusCode < http.StatusInternalServerError,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Component returns the metrics component name
func (h *APIChecker) Component() string {
	return metrics.ComponentAPI
}

func failed(start time.Time, format string, args ...interface{}) Result {
	return Result{
		Healthy:   false,
		Message:   fmt.Sprintf(format, args...),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
