package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// VerifyCache caches the result of successful remote verifications so
// that repeated requests with the same credential do not hit the
// authority on every call. Only positive results are cached; failures
// are always re-checked.
type VerifyCache interface {
	// Get returns the cached claims for a credential, or nil on a miss.
	Get(ctx context.Context, credential string) (*Claims, error)

	// Set stores claims for a credential. The entry must not outlive
	// the credential itself.
	Set(ctx context.Context, credential string, claims *Claims) error

	// Close releases the cache's resources.
	Close() error
}

// redisCache is a VerifyCache backed by Redis.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger observability.Logger
}

// RedisCacheOption is a functional option for the Redis verify cache.
type RedisCacheOption func(*redisCache)

// WithCacheTTL sets the maximum lifetime of cached entries.
func WithCacheTTL(ttl time.Duration) RedisCacheOption {
	return func(c *redisCache) {
		c.ttl = ttl
	}
}

// WithCacheLogger sets the logger for the cache.
func WithCacheLogger(logger observability.Logger) RedisCacheOption {
	return func(c *redisCache) {
		c.logger = logger
	}
}

// NewRedisCache creates a verification cache backed by the Redis
// instance at addr.
func NewRedisCache(addr string, opts ...RedisCacheOption) (VerifyCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	c := &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    5 * time.Minute,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// cacheKey derives the storage key from a credential. The raw token is
// never written to Redis.
func cacheKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "gateway:verify:" + hex.EncodeToString(sum[:])
}

func (c *redisCache) Get(ctx context.Context, credential string) (*Claims, error) {
	data, err := c.client.Get(ctx, cacheKey(credential)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("cache entry is corrupt: %w", err)
	}

	// A cached entry may have outlived its credential when the expiry
	// was not known at store time. Treat it as a miss.
	if !claims.ExpiresAt.IsZero() && !time.Now().Before(claims.ExpiresAt) {
		return nil, nil
	}

	return &claims, nil
}

func (c *redisCache) Set(ctx context.Context, credential string, claims *Claims) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}

	ttl := c.ttl
	if !claims.ExpiresAt.IsZero() {
		if remaining := time.Until(claims.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(credential), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}

	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// Ensure redisCache implements VerifyCache.
var _ VerifyCache = (*redisCache)(nil)
