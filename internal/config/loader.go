package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envOverrides are deployment-level settings that may override the
// config file. Secrets in particular belong in the environment rather
// than on disk.
type envOverrides struct {
	Addr       string `envconfig:"GATEWAY_ADDR"`
	LogLevel   string `envconfig:"GATEWAY_LOG_LEVEL"`
	LogFormat  string `envconfig:"GATEWAY_LOG_FORMAT"`
	SigningKey string `envconfig:"GATEWAY_SIGNING_KEY"`
	AuthURL    string `envconfig:"GATEWAY_AUTH_URL"`
	RedisAddr  string `envconfig:"GATEWAY_REDIS_ADDR"`
}

// Load reads a YAML configuration file, applies environment overrides,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyEnvOverrides overlays environment variables onto the config.
func ApplyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}

	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.SigningKey != "" {
		cfg.Auth.SigningKey = env.SigningKey
	}
	if env.AuthURL != "" {
		cfg.Auth.Remote.URL = env.AuthURL
	}
	if env.RedisAddr != "" {
		cfg.Auth.Cache.Addr = env.RedisAddr
	}

	return nil
}
