package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// verifyPath is the endpoint exposed by the authentication authority.
const verifyPath = "/verify-token"

// RemoteVerifier delegates credential verification to an external
// authentication authority over HTTP. It optionally falls back to local
// verification when the authority is unreachable, and caches positive
// results.
type RemoteVerifier struct {
	baseURL  string
	client   *http.Client
	fallback Authenticator
	cache    VerifyCache
	logger   observability.Logger
	metrics  *Metrics
}

// RemoteVerifierOption is a functional option for the remote verifier.
type RemoteVerifierOption func(*RemoteVerifier)

// WithRemoteTimeout bounds the round trip to the authority. The default
// is 10 seconds.
func WithRemoteTimeout(timeout time.Duration) RemoteVerifierOption {
	return func(v *RemoteVerifier) {
		v.client.Timeout = timeout
	}
}

// WithLocalFallback enables local verification when the authority
// cannot be reached. A definitive rejection by the authority is never
// retried locally.
func WithLocalFallback(fallback Authenticator) RemoteVerifierOption {
	return func(v *RemoteVerifier) {
		v.fallback = fallback
	}
}

// WithVerifyCache caches positive verification results.
func WithVerifyCache(cache VerifyCache) RemoteVerifierOption {
	return func(v *RemoteVerifier) {
		v.cache = cache
	}
}

// WithRemoteLogger sets the logger for the remote verifier.
func WithRemoteLogger(logger observability.Logger) RemoteVerifierOption {
	return func(v *RemoteVerifier) {
		v.logger = logger
	}
}

// WithRemoteMetrics sets the metrics for the remote verifier.
func WithRemoteMetrics(metrics *Metrics) RemoteVerifierOption {
	return func(v *RemoteVerifier) {
		v.metrics = metrics
	}
}

// NewRemoteVerifier creates a verifier that calls the authority at
// baseURL.
func NewRemoteVerifier(baseURL string, opts ...RemoteVerifierOption) (*RemoteVerifier, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("authority base URL is required")
	}

	v := &RemoteVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.metrics == nil {
		v.metrics = NewMetrics(nil)
	}

	return v, nil
}

// Verify asks the authority to validate the credential. The cache is
// consulted first; cache failures degrade to a normal remote call.
func (v *RemoteVerifier) Verify(ctx context.Context, credential string) (*Claims, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}

	log := v.logger.WithContext(ctx)

	if v.cache != nil {
		claims, err := v.cache.Get(ctx, credential)
		if err != nil {
			log.Warn("verification cache lookup failed", observability.Error(err))
		} else if claims != nil {
			v.metrics.RecordCacheHit()
			return claims, nil
		} else {
			v.metrics.RecordCacheMiss()
		}
	}

	start := time.Now()
	claims, err := v.verifyRemote(ctx, credential)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		v.metrics.RecordVerification("remote", "valid", elapsed)
	case errors.Is(err, ErrAuthorityUnavailable) && v.fallback != nil:
		v.metrics.RecordVerification("remote", "unreachable", elapsed)
		log.Warn("authority unreachable, falling back to local verification",
			observability.Error(err),
		)
		return v.fallback.Verify(ctx, credential)
	default:
		v.metrics.RecordVerification("remote", "invalid", elapsed)
		log.Debug("remote verification failed", observability.Error(err))
		return nil, err
	}

	if v.cache != nil {
		if err := v.cache.Set(ctx, credential, claims); err != nil {
			log.Warn("verification cache store failed", observability.Error(err))
		}
	}

	return claims, nil
}

// verifyRemote performs a single round trip to the authority.
func (v *RemoteVerifier) verifyRemote(ctx context.Context, credential string) (*Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+verifyPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	req.Header.Set("Authorization", bearerPrefix+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAuthorityRejected, resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorityRejected, err)
	}

	return ClaimsFromMap(payload)
}

// Ensure RemoteVerifier implements Authenticator.
var _ Authenticator = (*RemoteVerifier)(nil)
