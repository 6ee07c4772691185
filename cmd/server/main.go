package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/handler"
	redisRepo "github.com/AlexShrike/nexum-sub002/internal/adapter/repository/redis"
	"github.com/AlexShrike/nexum-sub002/internal/app"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/compliance"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/config"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/logger"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "nexum-ledger"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l, nil); err != nil {
		l.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. When ready is non-nil it receives the bound address.
func run(ctx context.Context, cfg *config.Config, l zerolog.Logger, ready chan<- string) error {
	backend, err := app.NewBackend(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.StorageBackend, err)
	}
	defer backend.Close()
	l.Info().Str("backend", backend.Name).Msg("storage ready")

	opts := app.Options{Logger: l, Checks: map[string]handler.Pinger{}}

	if cfg.RedisURL != "" {
		client, err := redis.Open(ctx, cfg.RedisURL, l)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		opts.Cache = redisRepo.NewResultCache(client, cfg.RedisKeyPrefix)
		opts.Checks["redis"] = client.Check
	}

	if cfg.ComplianceURL != "" {
		opts.Checker = compliance.NewHTTPChecker(cfg.ComplianceURL, &http.Client{Timeout: cfg.ComplianceTimeout})
		l.Info().Str("url", cfg.ComplianceURL).Str("fallback", cfg.ComplianceFallback).Msg("compliance checks enabled")
	}

	a := app.New(cfg, backend, opts)

	if n, err := a.Processor.RecoverStale(ctx, cfg.StaleAfter); err != nil {
		l.Warn().Err(err).Int("recovered", n).Msg("stale transaction recovery incomplete")
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		if err := a.Dispatcher.Start(dispatchCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.Error().Err(err).Msg("event dispatcher stopped")
		}
	}()

	ln, err := net.Listen("tcp", listenAddr(cfg))
	if err != nil {
		stopDispatch()
		<-dispatchDone
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:      a.Handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		l.Info().Str("addr", ln.Addr().String()).Msg("starting server")
		serveErr <- server.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		l.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		err = server.Shutdown(shutdownCtx)
		cancel()
	}

	// Drain events produced by the last requests before returning.
	stopDispatch()
	<-dispatchDone

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	l.Info().Msg("server stopped")
	return nil
}

func listenAddr(cfg *config.Config) string {
	if cfg.HTTPPort == "" {
		return ":8080"
	}
	return net.JoinHostPort("", cfg.HTTPPort)
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTPShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.HTTPShutdownTimeout
}
