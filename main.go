// ABOUTME: Entry point for the FastLearners BFF auth relay
// ABOUTME: Serves cookie-backed auth, profile, lesson and proxy routes in front of the upstream API

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cache"
	"github.com/travis-wayne/fastlearners-frontend-sub005/config"
	"github.com/travis-wayne/fastlearners-frontend-sub005/handlers"
	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting FastLearners BFF", "environment", cfg.Env)
	slog.Info("Upstream API configured", "url", cfg.UpstreamURL)
	if cfg.UpstreamAllProxy != "" {
		slog.Info("Upstream tunnel configured")
	}
	if !cfg.RateLimitEnabled {
		slog.Warn("Rate limiting disabled")
	}

	// Initialize cache
	c := cache.New(cfg.SubjectCacheTTLDuration())
	defer c.Close()
	slog.Info("Cache initialized", "ttl", cfg.SubjectCacheTTLDuration())

	h := handlers.NewHandler(cfg, c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
