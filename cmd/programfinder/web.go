package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"programfinder/internal/cache"
	"programfinder/internal/config"
	"programfinder/internal/geocode"
	"programfinder/internal/locator"
	"programfinder/internal/programs"
	"programfinder/internal/static"
	"programfinder/internal/telemetry"
	"programfinder/internal/templates"
)

type app struct {
	handler  http.Handler
	store    *programs.Store
	resolver *geocode.Memo
	locator  *locator.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := cache.MakeCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	resolver, err := geocode.New(cfg, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoder: %w", err)
	}

	catalog, err := programs.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := templates.Init(cfg, static.AssetPath); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	mux := http.NewServeMux()
	static.Register(mux)

	locatorServer := locator.NewServer(cfg, catalog, resolver)
	locatorServer.Register(mux)

	reg, err := telemetry.NewRegistry(append(geocode.Collectors(), locatorServer.Collectors()...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	mux.Handle("GET /metrics", telemetry.MetricsHandler(reg))

	ro := &readyOnce{}
	ro.Add(catalog, locatorServer, ReadyFunc(cache.Probe(store)))
	mux.Handle("/ready", ro)

	return &app{
		handler:  WithMiddleware(mux, reg),
		store:    catalog,
		resolver: resolver,
		locator:  locatorServer,
	}, nil
}

// reload re-reads the catalog and drops memoized coordinates when it changed.
func (a *app) reload(ctx context.Context) {
	changed, err := a.store.Reload(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "catalog reload failed", "error", err)
		return
	}
	if changed {
		a.resolver.Invalidate()
	}
}

func runServer(cfg *config.Config, addr string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Serving programfinder", "address", addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	for {
		select {
		case err := <-serverErrors:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-hup:
			slog.Info("Reloading catalog")
			a.reload(ctx)
		case sig := <-shutdown:
			slog.Info("Shutdown signal received", "signal", sig)
			return gracefulShutdown(server, a.locator.Close)
		}
	}
}

func gracefulShutdown(svr *http.Server, closeSessions func()) error {
	// Give outstanding requests 25 seconds to complete (kubernetes has 30 second grace period)
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		if closeErr := svr.Close(); closeErr != nil {
			slog.Error("Server close error", "error", closeErr)
		}
		closeSessions()
		return err
	}

	// unmounting cancels any marker lookups still running
	closeSessions()
	slog.Info("All sessions closed")
	return nil
}
