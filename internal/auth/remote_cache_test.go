package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteVerifier_CachesPositiveResults(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sub":  "u1",
			"role": "teacher",
			"exp":  float64(time.Now().Add(time.Hour).Unix()),
		})
	}))
	defer authority.Close()

	srv := miniredis.RunT(t)
	cache, err := NewRedisCache(srv.Addr())
	require.NoError(t, err)
	defer cache.Close()

	verifier, err := NewRemoteVerifier(authority.URL, WithVerifyCache(cache))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		claims, err := verifier.Verify(ctx, "cached-token")
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
	}

	assert.Equal(t, int64(1), calls.Load())
}

// Cache failures must degrade to a normal authority round trip, never
// fail the verification.
func TestRemoteVerifier_CacheFailureDegrades(t *testing.T) {
	t.Parallel()

	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sub":  "u2",
			"role": "student",
			"exp":  float64(time.Now().Add(time.Hour).Unix()),
		})
	}))
	defer authority.Close()

	cache, err := NewRedisCache("127.0.0.1:1")
	require.NoError(t, err)
	defer cache.Close()

	verifier, err := NewRemoteVerifier(authority.URL, WithVerifyCache(cache))
	require.NoError(t, err)

	claims, err := verifier.Verify(context.Background(), "any-token")
	require.NoError(t, err)
	assert.Equal(t, "u2", claims.Subject)
}
