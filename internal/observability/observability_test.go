package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json format", func(t *testing.T) {
		t.Parallel()
		logger, err := NewLogger(LogConfig{Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("console format", func(t *testing.T) {
		t.Parallel()
		logger, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()
		_, err := NewLogger(LogConfig{Level: "verbose"})
		assert.Error(t, err)
	})
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	ctx := ContextWithRequestID(context.Background(), "req-123")

	// Must not panic and must return a usable logger either way.
	logger.WithContext(ctx).Info("with request id")
	logger.WithContext(context.Background()).Info("without request id")
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("gateway")
	m.RecordRequest(http.MethodGet, "forwarded", http.StatusOK, 50*time.Millisecond)
	m.RecordRequest(http.MethodGet, "unauthorized", http.StatusUnauthorized, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "gateway_requests_total 2")
	assert.Contains(t, body, `outcome="forwarded"`)
	assert.Contains(t, body, `outcome="unauthorized"`)
}

func TestMetrics_ActiveRequests(t *testing.T) {
	t.Parallel()

	m := NewMetrics("gateway")
	m.IncrementActiveRequests()
	m.IncrementActiveRequests()
	m.DecrementActiveRequests()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "gateway_active_requests 1")
}

func TestMetrics_UpstreamErrors(t *testing.T) {
	t.Parallel()

	m := NewMetrics("gateway")
	m.RecordUpstreamError("users", "timeout")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `gateway_upstream_errors_total{reason="timeout",service="users"} 1`)
}
