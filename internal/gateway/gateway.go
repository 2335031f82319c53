// Package gateway implements the request pipeline: match the route,
// classify it, authenticate and authorize the caller, then forward to
// the backend. Each request passes through the pipeline exactly once
// and reaches exactly one terminal outcome.
package gateway

import (
	"net/http"
	"time"

	"github.com/okhrimenko/schoolgw/internal/auth"
	"github.com/okhrimenko/schoolgw/internal/authz"
	"github.com/okhrimenko/schoolgw/internal/health"
	"github.com/okhrimenko/schoolgw/internal/observability"
	"github.com/okhrimenko/schoolgw/internal/proxy"
	"github.com/okhrimenko/schoolgw/internal/router"
)

// Terminal pipeline outcomes, used as log and metric labels.
const (
	OutcomeForwarded           = "forwarded"
	OutcomeNotFound            = "not_found"
	OutcomeUnauthorized        = "unauthorized"
	OutcomeForbidden           = "forbidden"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
)

// Gateway is the top-level request handler.
type Gateway struct {
	table         *router.Table
	authenticator auth.Authenticator
	forwarder     *proxy.Forwarder
	checker       *health.Checker
	logger        observability.Logger
	metrics       *observability.Metrics
	version       string
}

// Option is a functional option for the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics for the gateway.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithHealthChecker sets the backend health checker, enabling the
// aggregated health endpoint.
func WithHealthChecker(checker *health.Checker) Option {
	return func(g *Gateway) {
		g.checker = checker
	}
}

// WithVersion sets the version reported by the info endpoint.
func WithVersion(version string) Option {
	return func(g *Gateway) {
		g.version = version
	}
}

// New creates a gateway over the given route table, authenticator, and
// forwarder.
func New(table *router.Table, authenticator auth.Authenticator, forwarder *proxy.Forwarder, opts ...Option) *Gateway {
	g := &Gateway{
		table:         table,
		authenticator: authenticator,
		forwarder:     forwarder,
		logger:        observability.NopLogger(),
		version:       "dev",
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = observability.NewMetrics("gateway")
	}

	return g
}

// Handler returns the gateway's HTTP handler: the public gateway
// endpoints plus the routing pipeline for everything else.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/services", g.handleServicesHealth)
	mux.HandleFunc("GET /gateway/info", g.handleInfo)
	mux.Handle("GET /metrics", g.metrics.Handler())
	mux.HandleFunc("/", g.route)
	return mux
}

// route runs one request through the pipeline and records its terminal
// outcome. This is the only place request metrics and the per-request
// log entry are emitted.
func (g *Gateway) route(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	g.metrics.IncrementActiveRequests()
	defer g.metrics.DecrementActiveRequests()

	rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	outcome := g.dispatch(rw, r)
	elapsed := time.Since(start)

	g.metrics.RecordRequest(r.Method, outcome, rw.status, elapsed)
	g.logger.WithContext(r.Context()).Info("request handled",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("outcome", outcome),
		observability.Int("status", rw.status),
		observability.Duration("elapsed", elapsed),
	)
}

// dispatch walks the pipeline states and returns the terminal outcome.
// A request that fails authentication or authorization is never
// forwarded.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) string {
	rule, ok := g.table.Match(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "route not found")
		return OutcomeNotFound
	}

	if rule.Public {
		return g.forward(w, r, rule, nil)
	}

	claims, err := g.authenticator.Verify(r.Context(), auth.ExtractBearerToken(r))
	if err != nil {
		// Uniform response regardless of the failure sub-reason.
		writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
		return OutcomeUnauthorized
	}

	// A rule with an unrecognized minimum role should have been caught
	// by config validation; if one slips through it fails closed.
	if !authz.KnownRole(string(rule.MinRole)) {
		g.logger.Error("route has unrecognized minimum role, failing closed",
			observability.String("prefix", rule.Prefix),
			observability.String("min_role", string(rule.MinRole)),
		)
	}

	if !authz.Authorize(claims.Role, rule.MinRole) {
		writeError(w, http.StatusForbidden,
			"requires "+string(rule.MinRole)+" role or higher")
		return OutcomeForbidden
	}

	return g.forward(w, r, rule, claims)
}

// forward relays the request and maps a failed relay to its own
// terminal outcome.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, rule *router.Rule, claims *auth.Claims) string {
	if !g.forwarder.Forward(w, r, rule, claims) {
		return OutcomeUpstreamUnavailable
	}
	return OutcomeForwarded
}
