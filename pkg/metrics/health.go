package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Components reported on /health and /ready
const (
	ComponentAPI     = "api"
	ComponentAuth    = "auth"
	ComponentLocator = "locator"
)

// Overall statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// criticalComponents must be healthy before the client reports ready. A failing
// locator only degrades health: clock-out and reports still work without it.
var criticalComponents = []string{ComponentAPI, ComponentAuth}

// HealthStatus is the JSON body of /health and /ready
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth is the last reported state of one component
type ComponentHealth struct {
	Healthy bool
	Message string
	Updated time.Time
}

type registry struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	startTime  time.Time
	version    string
}

var components = newRegistry("")

func newRegistry(version string) *registry {
	return &registry{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
		version:    version,
	}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	components.mu.Lock()
	defer components.mu.Unlock()
	components.version = version
}

// RegisterComponent records the state of a component
func RegisterComponent(name string, healthy bool, message string) {
	components.mu.Lock()
	defer components.mu.Unlock()
	components.components[name] = ComponentHealth{
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent records the state of a component
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

func isCritical(name string) bool {
	for _, c := range criticalComponents {
		if c == name {
			return true
		}
	}
	return false
}

// GetHealth returns the overall health: unhealthy when a critical component
// fails, degraded when only others do
func GetHealth() HealthStatus {
	components.mu.RLock()
	defer components.mu.RUnlock()

	status := StatusHealthy
	out := make(map[string]string, len(components.components))
	for name, comp := range components.components {
		if comp.Healthy {
			out[name] = "healthy"
			continue
		}
		out[name] = "unhealthy: " + comp.Message
		if isCritical(name) {
			status = StatusUnhealthy
		} else if status == StatusHealthy {
			status = StatusDegraded
		}
	}

	return components.status(status, "", out)
}

// GetReadiness returns readiness. The client is ready once the attendance API
// answers and a user is logged in.
func GetReadiness() HealthStatus {
	components.mu.RLock()
	defer components.mu.RUnlock()

	status := StatusReady
	message := ""
	out := make(map[string]string, len(criticalComponents))
	for _, name := range criticalComponents {
		comp, ok := components.components[name]
		switch {
		case !ok:
			status = StatusNotReady
			message = "waiting for " + name + " initialization"
			out[name] = "not registered"
		case !comp.Healthy:
			status = StatusNotReady
			message = "waiting for " + name
			out[name] = "not ready: " + comp.Message
		default:
			out[name] = "ready"
		}
	}

	return components.status(status, message, out)
}

// status must be called with r.mu held
func (r *registry) status(status, message string, comps map[string]string) HealthStatus {
	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: comps,
		Message:    message,
		Version:    r.version,
		Uptime:     time.Since(r.startTime).Round(time.Second).String(),
	}
}

func writeStatus(w http.ResponseWriter, s HealthStatus, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(s)
}

// HealthHandler serves /health. A degraded client still answers 200.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := GetHealth()
		writeStatus(w, h, h.Status != StatusUnhealthy)
	}
}

// ReadyHandler serves /ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := GetReadiness()
		writeStatus(w, h, h.Status == StatusReady)
	}
}

// NewMux returns a mux serving /metrics, /health and /ready
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", HealthHandler())
	mux.HandleFunc("/ready", ReadyHandler())
	return mux
}
