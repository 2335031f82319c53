package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/okhrimenko/schoolgw/internal/health"
)

// routeInfo is one entry in the info endpoint's route listing.
type routeInfo struct {
	Prefix  string `json:"prefix"`
	Service string `json:"service"`
	Public  bool   `json:"public"`
	MinRole string `json:"min_role,omitempty"`
}

// handleHealth reports gateway liveness. It never consults the
// backends.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gateway",
		"version": g.version,
	})
}

// handleServicesHealth probes every backend and reports the aggregate.
func (g *Gateway) handleServicesHealth(w http.ResponseWriter, r *http.Request) {
	if g.checker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"services": []struct{}{},
		})
		return
	}

	report := g.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleInfo lists the configured services and which prefixes are
// public vs protected.
func (g *Gateway) handleInfo(w http.ResponseWriter, r *http.Request) {
	rules := g.table.Rules()

	seen := make(map[string]bool)
	services := make([]string, 0, len(rules))
	routes := make([]routeInfo, 0, len(rules))
	for _, rule := range rules {
		if !seen[rule.Service] {
			seen[rule.Service] = true
			services = append(services, rule.Service)
		}
		routes = append(routes, routeInfo{
			Prefix:  rule.Prefix,
			Service: rule.Service,
			Public:  rule.Public,
			MinRole: string(rule.MinRole),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":  "gateway",
		"version":  g.version,
		"services": services,
		"routes":   routes,
	})
}

// statusRecorder captures the status code written by the pipeline.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.written {
		w.written = true
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController, so
// flush and hijack reach it through the recorder.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the uniform error envelope. Response bodies never
// carry stack traces, internal hostnames, or key material.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
