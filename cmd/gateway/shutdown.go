package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/okhrimenko/schoolgw/internal/observability"
)

// runGateway serves HTTP and blocks until a shutdown signal arrives.
func runGateway(app *application, logger observability.Logger) {
	server := &http.Server{
		Addr:         app.config.Server.Addr,
		Handler:      app.handler,
		ReadTimeout:  app.config.Server.ReadTimeout.Duration(),
		WriteTimeout: app.config.Server.WriteTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", observability.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	waitForShutdown(app, server, errCh, logger)
}

// waitForShutdown waits for a shutdown signal or a listener failure,
// then drains in-flight requests within the configured timeout.
func waitForShutdown(
	app *application,
	server *http.Server,
	errCh <-chan error,
	logger observability.Logger,
) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", observability.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		app.config.Server.ShutdownTimeout.Duration(),
	)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if app.verifyCache != nil {
		if err := app.verifyCache.Close(); err != nil {
			logger.Error("failed to close verification cache", observability.Error(err))
		}
	}

	logger.Info("gateway stopped")
}
