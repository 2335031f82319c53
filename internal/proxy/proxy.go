// Package proxy forwards matched requests to backend services with a
// bounded timeout and a per-service circuit breaker.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okhrimenko/schoolgw/internal/auth"
	"github.com/okhrimenko/schoolgw/internal/observability"
	"github.com/okhrimenko/schoolgw/internal/router"
)

// Identity headers injected into forwarded requests. Inbound values are
// always stripped so a client cannot spoof an identity.
const (
	HeaderAuthSubject = "X-Auth-Subject"
	HeaderAuthRole    = "X-Auth-Role"
)

// Forwarder relays requests to backend services. It is safe for
// concurrent use; per-request state lives on the request itself.
type Forwarder struct {
	proxies  map[string]*httputil.ReverseProxy
	breakers map[string]*gobreaker.CircuitBreaker
	logger   observability.Logger
	metrics  *observability.Metrics
}

// ForwarderOption is a functional option for the forwarder.
type ForwarderOption func(*Forwarder)

// WithLogger sets the logger for the forwarder.
func WithLogger(logger observability.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics for the forwarder.
func WithMetrics(metrics *observability.Metrics) ForwarderOption {
	return func(f *Forwarder) {
		f.metrics = metrics
	}
}

// NewForwarder builds one reverse proxy and one circuit breaker per
// backend service referenced by the route table.
func NewForwarder(table *router.Table, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		proxies:  make(map[string]*httputil.ReverseProxy),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(f)
	}

	for _, rule := range table.Rules() {
		if _, ok := f.proxies[rule.Service]; ok {
			continue
		}
		f.proxies[rule.Service] = f.newProxy(rule.Service, rule.Target)
	}

	return f
}

// newProxy builds the reverse proxy for one backend service.
func (f *Forwarder) newProxy(service string, target *url.URL) *httputil.ReverseProxy {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("circuit breaker state changed",
				observability.String("service", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})
	f.breakers[service] = breaker

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			pr.SetXForwarded()
		},
		Transport: &breakerTransport{
			breaker: breaker,
			base:    http.DefaultTransport,
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			f.handleError(w, r, service, err)
		},
	}

	return proxy
}

// Forward relays the request to the backend selected by rule, with the
// rule's timeout bound on the whole round trip. Claims may be nil for
// public routes. It reports false when the relay failed and the
// gateway-originated error response was written instead.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, rule *router.Rule, claims *auth.Claims) bool {
	state := &forwardState{start: time.Now()}

	proxy, ok := f.proxies[rule.Service]
	if !ok {
		// The table guarantees a proxy per referenced service, so this
		// indicates corrupted wiring rather than a routable condition.
		r = r.WithContext(contextWithState(r.Context(), state))
		f.handleError(w, r, rule.Service, fmt.Errorf("no proxy for service %q", rule.Service))
		return false
	}

	ctx := r.Context()
	if rule.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rule.Timeout)
		defer cancel()
	}
	ctx = contextWithState(ctx, state)
	r = r.WithContext(ctx)

	r.Header.Del(HeaderAuthSubject)
	r.Header.Del(HeaderAuthRole)
	if claims != nil {
		r.Header.Set(HeaderAuthSubject, claims.Subject)
		r.Header.Set(HeaderAuthRole, string(claims.Role))
	}

	proxy.ServeHTTP(w, r)
	return !state.failed
}

// handleError translates a forwarding failure into a gateway-originated
// 503. The response body stays generic; the service name and elapsed
// time go to the log for operator diagnosis.
func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, service string, err error) {
	reason := "unreachable"
	detail := "upstream service unavailable"
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		r.Context().Err() == context.DeadlineExceeded:
		reason = "timeout"
		detail = "upstream service timed out"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = "circuit_open"
		detail = "upstream service temporarily unavailable"
	}

	elapsed := time.Duration(0)
	if state, ok := stateFromContext(r.Context()); ok {
		state.failed = true
		elapsed = time.Since(state.start)
	}

	f.logger.WithContext(r.Context()).Error("upstream request failed",
		observability.String("service", service),
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("reason", reason),
		observability.Duration("elapsed", elapsed),
		observability.Error(err),
	)
	if f.metrics != nil {
		f.metrics.RecordUpstreamError(service, reason)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// BreakerState returns the circuit breaker state for a service, for the
// aggregated health report.
func (f *Forwarder) BreakerState(service string) (gobreaker.State, bool) {
	breaker, ok := f.breakers[service]
	if !ok {
		return 0, false
	}
	return breaker.State(), true
}

// breakerTransport runs each round trip through the service's circuit
// breaker. Only transport-level failures count against the breaker;
// backend responses, whatever their status, are relayed as-is.
type breakerTransport struct {
	breaker *gobreaker.CircuitBreaker
	base    http.RoundTripper
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.breaker.Execute(func() (interface{}, error) {
		return t.base.RoundTrip(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// forwardState carries per-relay bookkeeping through the request
// context so the error handler can mark a failed attempt.
type forwardState struct {
	start  time.Time
	failed bool
}

type contextKey struct{}

var stateKey contextKey

func contextWithState(ctx context.Context, state *forwardState) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func stateFromContext(ctx context.Context) (*forwardState, bool) {
	state, ok := ctx.Value(stateKey).(*forwardState)
	return state, ok
}
