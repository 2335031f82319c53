package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// signingMethod is the fixed algorithm identifier for minted and
// locally verified tokens.
var signingMethod = jwt.SigningMethodHS256

// Authenticator turns a bearer credential into validated Claims, or
// rejects it. Implementations must not panic on malformed input.
type Authenticator interface {
	// Verify validates a credential and returns its claims. Any
	// failure wraps ErrInvalidCredential.
	Verify(ctx context.Context, credential string) (*Claims, error)
}

// TokenService mints and locally verifies HS256 tokens with a shared
// symmetric key.
type TokenService struct {
	key     []byte
	issuer  string
	ttl     time.Duration
	logger  observability.Logger
	metrics *Metrics
}

// TokenServiceOption is a functional option for the token service.
type TokenServiceOption func(*TokenService)

// WithIssuer sets the issuer stamped into minted tokens.
func WithIssuer(issuer string) TokenServiceOption {
	return func(s *TokenService) {
		s.issuer = issuer
	}
}

// WithTokenTTL sets the default lifetime of minted tokens.
func WithTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.ttl = ttl
	}
}

// WithTokenLogger sets the logger for the token service.
func WithTokenLogger(logger observability.Logger) TokenServiceOption {
	return func(s *TokenService) {
		s.logger = logger
	}
}

// WithTokenMetrics sets the metrics for the token service.
func WithTokenMetrics(metrics *Metrics) TokenServiceOption {
	return func(s *TokenService) {
		s.metrics = metrics
	}
}

// NewTokenService creates a token service for the given signing key.
func NewTokenService(key []byte, opts ...TokenServiceOption) (*TokenService, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}

	s := &TokenService{
		key:    key,
		ttl:    30 * time.Minute,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}

	return s, nil
}

// Mint encodes claims into a signed token expiring at now + ttl. A
// non-positive ttl uses the service default.
func (s *TokenService) Mint(claims *Claims, ttl time.Duration) (string, error) {
	if claims == nil || claims.Subject == "" {
		return "", fmt.Errorf("claims with a subject are required")
	}

	if ttl <= 0 {
		ttl = s.ttl
	}

	now := time.Now()
	payload := jwt.MapClaims{
		"sub":  claims.Subject,
		"role": string(claims.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if len(claims.Permissions) > 0 {
		payload["permissions"] = claims.Permissions
	}
	if s.issuer != "" {
		payload["iss"] = s.issuer
	}

	token, err := jwt.NewWithClaims(signingMethod, payload).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// Verify decodes a credential and checks its signature and expiry
// locally. Malformed input never causes a panic; all failures collapse
// to ErrInvalidCredential for the caller, with the sub-reason kept for
// logging.
func (s *TokenService) Verify(ctx context.Context, credential string) (*Claims, error) {
	start := time.Now()

	claims, err := s.verify(credential)
	if err != nil {
		s.metrics.RecordVerification("local", "invalid", time.Since(start))
		s.logger.WithContext(ctx).Debug("local verification failed",
			observability.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordVerification("local", "valid", time.Since(start))
	return claims, nil
}

// verify performs the actual decode without metrics or logging.
func (s *TokenService) verify(credential string) (*Claims, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}

	parsed, err := jwt.Parse(credential,
		func(*jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	return ClaimsFromMap(payload)
}

// Ensure TokenService implements Authenticator.
var _ Authenticator = (*TokenService)(nil)
