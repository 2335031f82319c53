package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for credential verification.
type Metrics struct {
	verifications        *prometheus.CounterVec
	verificationDuration *prometheus.HistogramVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
}

// NewMetrics creates auth metrics and registers them with reg. A nil
// registerer leaves the metrics unregistered, which is convenient in
// tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "auth",
				Name:      "verifications_total",
				Help:      "Credential verifications by method and result",
			},
			[]string{"method", "result"},
		),
		verificationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "auth",
				Name:      "verification_duration_seconds",
				Help:      "Credential verification duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
			},
			[]string{"method"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "auth",
				Name:      "verify_cache_hits_total",
				Help:      "Remote verification cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "auth",
				Name:      "verify_cache_misses_total",
				Help:      "Remote verification cache misses",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.verifications,
			m.verificationDuration,
			m.cacheHits,
			m.cacheMisses,
		)
	}

	return m
}

// RecordVerification records one verification attempt.
func (m *Metrics) RecordVerification(method, result string, duration time.Duration) {
	m.verifications.WithLabelValues(method, result).Inc()
	m.verificationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCacheHit records a verification cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss records a verification cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}
