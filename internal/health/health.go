// Package health reports gateway liveness and the aggregated health of
// the configured backend services.
package health

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okhrimenko/schoolgw/internal/config"
	"github.com/okhrimenko/schoolgw/internal/observability"
)

// Aggregated status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Per-service status values.
const (
	ServiceUp   = "up"
	ServiceDown = "down"
)

// ServiceStatus is the health of one backend service.
type ServiceStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report aggregates per-service health: all up is healthy, some up is
// degraded, none up is unhealthy.
type Report struct {
	Status   string          `json:"status"`
	Services []ServiceStatus `json:"services"`
}

// Checker probes each backend's own health endpoint.
type Checker struct {
	services []config.Service
	client   *http.Client
	logger   observability.Logger
}

// CheckerOption is a functional option for the checker.
type CheckerOption func(*Checker)

// WithProbeTimeout bounds each individual backend probe.
func WithProbeTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		c.client.Timeout = timeout
	}
}

// WithLogger sets the logger for the checker.
func WithLogger(logger observability.Logger) CheckerOption {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates a health checker for the configured services.
func NewChecker(services []config.Service, opts ...CheckerOption) *Checker {
	c := &Checker{
		services: services,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check probes all backends concurrently and aggregates the results.
// Probe failures degrade the report; they never fail the call.
func (c *Checker) Check(ctx context.Context) *Report {
	statuses := make([]ServiceStatus, len(c.services))

	g, ctx := errgroup.WithContext(ctx)
	for i, svc := range c.services {
		g.Go(func() error {
			statuses[i] = c.probe(ctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})

	up := 0
	for _, s := range statuses {
		if s.Status == ServiceUp {
			up++
		}
	}

	status := StatusHealthy
	switch {
	case len(statuses) == 0 || up == len(statuses):
	case up == 0:
		status = StatusUnhealthy
	default:
		status = StatusDegraded
	}

	return &Report{Status: status, Services: statuses}
}

// probe checks one backend's health endpoint.
func (c *Checker) probe(ctx context.Context, svc config.Service) ServiceStatus {
	status := ServiceStatus{Name: svc.Name, Status: ServiceDown}

	endpoint := strings.TrimRight(svc.URL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("backend health probe failed",
			observability.String("service", svc.Name),
			observability.Error(err),
		)
		status.Error = "unreachable"
		return status
	}
	defer resp.Body.Close()

	status.Latency = time.Since(start).Round(time.Millisecond).String()
	if resp.StatusCode == http.StatusOK {
		status.Status = ServiceUp
	} else {
		status.Error = http.StatusText(resp.StatusCode)
	}

	return status
}
