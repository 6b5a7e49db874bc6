package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/config"
	"github.com/mmynk/groupsplit/internal/currency"
	"github.com/mmynk/groupsplit/internal/observability"
	"github.com/mmynk/groupsplit/internal/resilience"
	"github.com/mmynk/groupsplit/internal/service"
	"github.com/mmynk/groupsplit/internal/storage/sqlite"
	"github.com/mmynk/groupsplit/pkg/logging"
)

const (
	shutdownTimeout  = 10 * time.Second
	ratesHTTPTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup structured logging
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	metrics := observability.NewMetrics()
	rates := currency.NewSource(currency.DefaultTable())

	var refresher *currency.Refresher
	if cfg.RatesURL != "" {
		refresher = currency.NewRefresher(
			rates,
			currency.NewHTTPFetcher(cfg.RatesURL, ratesHTTPTimeout),
			cfg.RatesRefreshInterval,
			resilience.RetryConfig{
				MaxRetries:     cfg.RatesMaxRetries,
				InitialBackoff: cfg.RatesInitialBackoff,
			},
			metrics,
		)
	} else {
		slog.Info("RATES_URL not set, using built-in exchange rates")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authenticator := auth.NewPasswordAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash)

	handler, err := newRouter(routerDeps{
		groups:     service.NewGroupService(store, rates, metrics),
		admin:      service.NewAdminService(store, authenticator, jwtManager, rates, cfg.StatsCacheTTL, metrics),
		jwtManager: jwtManager,
		metrics:    metrics,
		rateLimit:  cfg.RateLimit,
	})
	if err != nil {
		return err
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if refresher != nil {
		g.Go(func() error {
			return refresher.Run(gCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}
