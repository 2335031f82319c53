// Package main is the entry point for the school API gateway.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/okhrimenko/schoolgw/internal/auth"
	"github.com/okhrimenko/schoolgw/internal/config"
	"github.com/okhrimenko/schoolgw/internal/gateway"
	"github.com/okhrimenko/schoolgw/internal/health"
	"github.com/okhrimenko/schoolgw/internal/middleware"
	"github.com/okhrimenko/schoolgw/internal/observability"
	"github.com/okhrimenko/schoolgw/internal/proxy"
	"github.com/okhrimenko/schoolgw/internal/router"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	runGateway(app, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("schoolgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting schoolgw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	for _, warning := range cfg.Warnings() {
		logger.Warn("configuration warning", observability.String("warning", warning))
	}

	publicRoutes := 0
	for _, route := range cfg.Routes {
		if route.Public {
			publicRoutes++
		}
	}

	logger.Info("configuration loaded",
		observability.String("addr", cfg.Server.Addr),
		observability.String("auth_mode", cfg.Auth.Mode),
		observability.Int("services", len(cfg.Services)),
		observability.Int("routes", len(cfg.Routes)),
		observability.Int("public_routes", publicRoutes),
	)

	return cfg
}

// application holds all application components.
type application struct {
	handler     http.Handler
	verifyCache auth.VerifyCache
	metrics     *observability.Metrics
	config      *config.Config
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := observability.NewMetrics("gateway")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	table, err := router.NewTable(cfg.Services, cfg.Routes, router.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to build route table", observability.Error(err))
	}

	authenticator, verifyCache := initAuthenticator(cfg, logger, metrics)

	forwarder := proxy.NewForwarder(table,
		proxy.WithLogger(logger),
		proxy.WithMetrics(metrics),
	)

	checker := health.NewChecker(cfg.Services, health.WithLogger(logger))

	gw := gateway.New(table, authenticator, forwarder,
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithHealthChecker(checker),
		gateway.WithVersion(version),
	)

	return &application{
		handler:     buildMiddlewareChain(gw.Handler(), cfg, logger),
		verifyCache: verifyCache,
		metrics:     metrics,
		config:      cfg,
	}
}

// initAuthenticator wires the configured verification mode: a local
// HS256 check, or delegation to the remote authority with optional
// local fallback and Redis result caching.
func initAuthenticator(
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
) (auth.Authenticator, auth.VerifyCache) {
	authMetrics := auth.NewMetrics(metrics.Registry())

	var local *auth.TokenService
	if cfg.Auth.SigningKey != "" {
		var err error
		local, err = auth.NewTokenService([]byte(cfg.Auth.SigningKey),
			auth.WithIssuer(cfg.Auth.Issuer),
			auth.WithTokenTTL(cfg.Auth.TokenTTL.Duration()),
			auth.WithTokenLogger(logger),
			auth.WithTokenMetrics(authMetrics),
		)
		if err != nil {
			logger.Fatal("failed to create token service", observability.Error(err))
		}
	}

	if cfg.Auth.Mode == config.VerifyModeLocal {
		return local, nil
	}

	opts := []auth.RemoteVerifierOption{
		auth.WithRemoteTimeout(cfg.Auth.Remote.Timeout.Duration()),
		auth.WithRemoteLogger(logger),
		auth.WithRemoteMetrics(authMetrics),
	}

	if cfg.Auth.Remote.LocalFallback && local != nil {
		opts = append(opts, auth.WithLocalFallback(local))
	}

	var verifyCache auth.VerifyCache
	if cfg.Auth.Cache.Enabled {
		cache, err := auth.NewRedisCache(cfg.Auth.Cache.Addr,
			auth.WithCacheTTL(cfg.Auth.Cache.TTL.Duration()),
			auth.WithCacheLogger(logger),
		)
		if err != nil {
			logger.Fatal("failed to create verification cache", observability.Error(err))
		}
		verifyCache = cache
		opts = append(opts, auth.WithVerifyCache(cache))
	}

	remote, err := auth.NewRemoteVerifier(cfg.Auth.Remote.URL, opts...)
	if err != nil {
		logger.Fatal("failed to create remote verifier", observability.Error(err))
	}

	return remote, verifyCache
}

// buildMiddlewareChain builds the middleware chain around the gateway
// handler. Recovery is outermost so every layer is covered.
func buildMiddlewareChain(handler http.Handler, cfg *config.Config, logger observability.Logger) http.Handler {
	middlewares := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.SecurityHeaders(),
		middleware.ProcessTime(),
	}

	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares,
			middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	return middleware.Chain(handler, middlewares...)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
