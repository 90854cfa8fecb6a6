// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check is one named health probe.
type Check func(ctx context.Context) error

// HealthHandler aggregates component probes into a JSON health endpoint.
type HealthHandler struct {
	version string
	started time.Time
	checks  map[string]Check
}

// NewHealthHandler creates a health endpoint with the given build version.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version: version,
		started: time.Now(),
		checks:  make(map[string]Check),
	}
}

// AddCheck registers a named probe, e.g. the store ping.
func (h *HealthHandler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

// healthResponse is the wire shape of the health endpoint.
type healthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	UptimeSec int64           `json:"uptime_seconds"`
	Checks    map[string]bool `json:"checks"`
	Timestamp time.Time       `json:"timestamp"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Version:   h.version,
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Checks:    make(map[string]bool, len(h.checks)),
		Timestamp: time.Now(),
	}

	code := http.StatusOK
	for name, check := range h.checks {
		ok := check(ctx) == nil
		resp.Checks[name] = ok
		if !ok {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
