// Package main is the entry point for the ferrycast API server.
//
// It loads configuration, opens the pgx connection pool, wires the weather
// adapters, scoring engine, board builder, and backtest service, and serves
// HTTP with graceful shutdown on SIGINT/SIGTERM.
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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"ferrycast/internal/api/handlers"
	"ferrycast/internal/backtest"
	"ferrycast/internal/board"
	"ferrycast/internal/config"
	"ferrycast/internal/core"
	"ferrycast/internal/db"
	"ferrycast/internal/external"
	"ferrycast/internal/scheduler"
	"ferrycast/internal/scoring"
	"ferrycast/internal/tide"
	"ferrycast/internal/weather"
)

const userAgent = "ferrycast/1.0"

// forecastFreshnessMaxAge is how stale ingested forecasts may get before
// the health endpoint reports the ingestion job unhealthy.
const forecastFreshnessMaxAge = 6 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("ferrycast API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	clock := clockwork.NewRealClock()

	// Repositories.
	corridors := db.NewCorridorRepository(pool)
	conditions := db.NewConditionsRepository(pool)
	schedule := db.NewScheduleRepository(pool)
	forecasts := db.NewForecastRepository(pool)
	predictions := db.NewPredictionRepository(pool)
	outcomes := db.NewOutcomeRepository(pool)
	backtests := db.NewBacktestRepository(pool)

	// Provider adapters, each behind its own circuit breaker.
	obsCache := weather.NewConditionsCache(cfg.Weather.CacheTTL, clock)
	localObs := weather.NewLocalObservationClient(
		cfg.Weather.LocalObsBaseURL,
		external.NewBaseClient(&http.Client{}, "local-observations", external.DefaultRetryPolicy(), userAgent),
		obsCache,
		cfg.Weather.ProviderTimeout,
	)
	forecastSource := weather.NewModelForecastClient(
		cfg.Weather.ForecastBaseURL,
		external.NewBaseClient(&http.Client{}, "model-forecasts", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.ProviderTimeout,
	)
	tides := tide.NewClient(
		cfg.Weather.TideBaseURL,
		external.NewBaseClient(&http.Client{}, "tides", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.ProviderTimeout,
	)

	// Domain services.
	resolver := weather.NewAuthorityResolver(conditions, localObs, corridors, cfg.Weather.OperatorStalenessWindow, logger)
	engine := scoring.NewEngine(cfg.Scoring.ModelVersion)
	guard := board.NewGuard(schedule, logger)
	builder := board.NewBuilder(corridors, schedule, resolver, tides, forecasts, outcomes, predictions, guard, engine, clock, logger)

	backtestSvc := backtest.NewService(predictions, outcomes, backtests, backtest.Config{
		DefaultLimit:       cfg.Jobs.BacktestDefaultLimit,
		MaxLimit:           cfg.Jobs.BacktestMaxLimit,
		LinkTolerance:      cfg.Jobs.LinkTolerance,
		EnrichmentDeadline: cfg.Jobs.EnrichmentDeadline,
	}, clock, logger)
	ingestSvc := scheduler.NewIngestionService(corridors, forecastSource, forecasts, cfg.Weather.ForecastHorizonHours, clock, logger)

	// Handlers.
	boardHandler := handlers.NewBoardHandler(builder, clock, logger)
	outcomeHandler := handlers.NewOutcomeHandler(backtestSvc, logger)
	accuracyHandler := handlers.NewAccuracyHandler(backtestSvc, logger)
	jobsHandler := handlers.NewJobsHandler(ingestSvc, backtestSvc, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		boardHandler.RegisterRoutes,
		outcomeHandler.RegisterRoutes,
		accuracyHandler.RegisterRoutes,
		func(r chi.Router) {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(srv.RequireJobToken)
				jobsHandler.RegisterRoutes(r)
			})
		},
	)

	srv.HealthProbes = []core.HealthProbe{
		core.PingProbe{ProbeName: "database", Ping: pool.Ping},
		scheduler.NewFreshnessProbe(corridors, forecasts, forecastFreshnessMaxAge, clock),
	}

	srv.MountRoutes()
	return serveHTTP(srv, cfg, logger)
}

// newPool opens the pgx connection pool with the configured tuning and
// verifies connectivity before the server starts accepting traffic.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// serveHTTP runs the HTTP server until a shutdown signal or fatal error.
func serveHTTP(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// newLogger creates a structured JSON logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
