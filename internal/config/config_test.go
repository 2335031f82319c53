package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a minimal configuration that passes validation.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth.SigningKey = "test-key"
	cfg.Services = []Service{
		{Name: "users", URL: "http://users:8000"},
	}
	cfg.Routes = []RouteRule{
		{Prefix: "/api/v1/users", Service: "users", MinRole: "teacher"},
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, DefaultListenAddr, cfg.Server.Addr)
	assert.Equal(t, VerifyModeLocal, cfg.Auth.Mode)
	assert.Equal(t, DefaultTokenTTL, cfg.Auth.TokenTTL.Duration())
	assert.Equal(t, DefaultRemoteTimeout, cfg.Auth.Remote.Timeout.Duration())
}

func TestNormalize_FillsRouteTimeouts(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Routes: []RouteRule{
			{Prefix: "/a", Service: "s"},
			{Prefix: "/b", Service: "s", Timeout: Duration(5 * time.Second)},
		},
	}
	cfg.Normalize()

	assert.Equal(t, DefaultUpstreamTimeout, cfg.Routes[0].Timeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.Routes[1].Timeout.Duration())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Auth.Mode = "hybrid" },
			wantErr: "unknown verification mode",
		},
		{
			name:    "local mode without signing key",
			mutate:  func(c *Config) { c.Auth.SigningKey = "" },
			wantErr: "signing key is required",
		},
		{
			name: "remote mode without URL",
			mutate: func(c *Config) {
				c.Auth.Mode = VerifyModeRemote
			},
			wantErr: "authority URL",
		},
		{
			name: "fallback without signing key",
			mutate: func(c *Config) {
				c.Auth.Mode = VerifyModeRemote
				c.Auth.Remote.URL = "http://auth:8000"
				c.Auth.Remote.LocalFallback = true
				c.Auth.SigningKey = ""
			},
			wantErr: "fallback requires a signing key",
		},
		{
			name: "duplicate service name",
			mutate: func(c *Config) {
				c.Services = append(c.Services, Service{Name: "users", URL: "http://other:9000"})
			},
			wantErr: "duplicate name",
		},
		{
			name: "invalid service URL",
			mutate: func(c *Config) {
				c.Services[0].URL = "not-a-url"
			},
			wantErr: "invalid base URL",
		},
		{
			name: "prefix without leading slash",
			mutate: func(c *Config) {
				c.Routes[0].Prefix = "api/v1/users"
			},
			wantErr: "must start with /",
		},
		{
			name: "route with unknown service",
			mutate: func(c *Config) {
				c.Routes[0].Service = "ghost"
			},
			wantErr: "unknown service",
		},
		{
			name: "protected route without minimum role",
			mutate: func(c *Config) {
				c.Routes[0].MinRole = ""
			},
			wantErr: "requires a minimum role",
		},
		{
			name: "protected route with unknown minimum role",
			mutate: func(c *Config) {
				c.Routes[0].MinRole = "superuser"
			},
			wantErr: "unknown minimum role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWarnings_DuplicatePrefixes(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Routes = append(cfg.Routes,
		RouteRule{Prefix: "/api/v1/users", Service: "users", Public: true})

	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ambiguous route prefix")
	assert.Contains(t, warnings[0], "first registration wins")
}

func TestWarnings_CleanConfig(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validConfig().Warnings())
}
