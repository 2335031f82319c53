// Package config provides configuration management for the gateway.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okhrimenko/schoolgw/internal/authz"
)

// Default values applied by Normalize.
const (
	DefaultListenAddr      = ":8080"
	DefaultTokenTTL        = 30 * time.Minute
	DefaultRemoteTimeout   = 10 * time.Second
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Verification modes for the token authenticator.
const (
	VerifyModeLocal  = "local"
	VerifyModeRemote = "remote"
)

// Config is the root gateway configuration. It is loaded once at
// startup and treated as immutable for the process lifetime.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Services  []Service       `yaml:"services"`
	Routes    []RouteRule     `yaml:"routes"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	// SigningKey is the symmetric key for HS256 tokens. Required when
	// Mode is "local" or the remote fallback is enabled.
	SigningKey string `yaml:"signingKey"`

	// Issuer is stamped into minted tokens.
	Issuer string `yaml:"issuer"`

	// TokenTTL is the default lifetime of minted tokens.
	TokenTTL Duration `yaml:"tokenTTL"`

	// Mode selects local or remote verification as primary.
	Mode string `yaml:"mode"`

	// Remote configures the external authentication authority.
	Remote RemoteVerifyConfig `yaml:"remote"`

	// Cache configures the optional remote-verification result cache.
	Cache VerifyCacheConfig `yaml:"cache"`
}

// RemoteVerifyConfig configures the external authentication authority.
type RemoteVerifyConfig struct {
	// URL is the authority base URL; the credential is POSTed to
	// {URL}/verify-token.
	URL string `yaml:"url"`

	// Timeout bounds the verification call.
	Timeout Duration `yaml:"timeout"`

	// LocalFallback permits a local signature check when the
	// authority is unreachable. Disabled by default.
	LocalFallback bool `yaml:"localFallback"`
}

// VerifyCacheConfig configures the Redis-backed verification cache.
type VerifyCacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Addr    string   `yaml:"addr"`
	TTL     Duration `yaml:"ttl"`
}

// RateLimitConfig configures the global token-bucket rate limiter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// Service describes one backend service the gateway can forward to.
type Service struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// RouteRule maps a path prefix to a target service plus its auth
// requirement. Rules are read-only during request processing.
type RouteRule struct {
	// Prefix is the path prefix this rule matches, longest prefix wins.
	Prefix string `yaml:"prefix"`

	// Service names the target backend from the Services list.
	Service string `yaml:"service"`

	// Public marks the route as requiring no authentication.
	Public bool `yaml:"public"`

	// MinRole is the minimum role required for protected routes.
	MinRole string `yaml:"minRole"`

	// Timeout bounds the upstream forward for this route.
	Timeout Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultListenAddr,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			Mode:     VerifyModeLocal,
			TokenTTL: Duration(DefaultTokenTTL),
			Remote: RemoteVerifyConfig{
				Timeout: Duration(DefaultRemoteTimeout),
			},
		},
	}
}

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultListenAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = VerifyModeLocal
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = Duration(DefaultTokenTTL)
	}
	if c.Auth.Remote.Timeout == 0 {
		c.Auth.Remote.Timeout = Duration(DefaultRemoteTimeout)
	}
	for i := range c.Routes {
		if c.Routes[i].Timeout == 0 {
			c.Routes[i].Timeout = Duration(DefaultUpstreamTimeout)
		}
	}
}

// Validate checks the configuration for hard errors. A misconfigured
// route table must be rejected at startup, never silently granted at
// request time.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case VerifyModeLocal, VerifyModeRemote:
	default:
		return fmt.Errorf("auth: unknown verification mode %q", c.Auth.Mode)
	}

	if c.Auth.Mode == VerifyModeLocal && c.Auth.SigningKey == "" {
		return fmt.Errorf("auth: signing key is required for local verification")
	}
	if c.Auth.Mode == VerifyModeRemote {
		if c.Auth.Remote.URL == "" {
			return fmt.Errorf("auth: remote verification requires an authority URL")
		}
		if c.Auth.Remote.LocalFallback && c.Auth.SigningKey == "" {
			return fmt.Errorf("auth: local fallback requires a signing key")
		}
	}

	serviceNames := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("service %d: name is required", i)
		}
		if serviceNames[svc.Name] {
			return fmt.Errorf("service %q: duplicate name", svc.Name)
		}
		serviceNames[svc.Name] = true

		u, err := url.Parse(svc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("service %q: invalid base URL %q", svc.Name, svc.URL)
		}
	}

	for i, rule := range c.Routes {
		if rule.Prefix == "" || !strings.HasPrefix(rule.Prefix, "/") {
			return fmt.Errorf("route %d: prefix must start with /", i)
		}
		if !serviceNames[rule.Service] {
			return fmt.Errorf("route %q: unknown service %q", rule.Prefix, rule.Service)
		}
		if !rule.Public {
			if rule.MinRole == "" {
				return fmt.Errorf("route %q: protected route requires a minimum role", rule.Prefix)
			}
			if !authz.KnownRole(rule.MinRole) {
				return fmt.Errorf("route %q: unknown minimum role %q", rule.Prefix, rule.MinRole)
			}
		}
	}

	return nil
}

// Warnings returns non-fatal configuration issues. Equal-length
// duplicate prefixes are resolved first-registered-wins but should be
// surfaced to the operator at startup.
func (c *Config) Warnings() []string {
	var warnings []string

	seen := make(map[string]string, len(c.Routes))
	for _, rule := range c.Routes {
		if first, ok := seen[rule.Prefix]; ok {
			warnings = append(warnings, fmt.Sprintf(
				"ambiguous route prefix %q: already registered for service %q, first registration wins",
				rule.Prefix, first,
			))
			continue
		}
		seen[rule.Prefix] = rule.Service
	}

	return warnings
}
