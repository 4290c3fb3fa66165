// Package main is the one-shot forecast ingestion runner, intended to be
// invoked from cron or a container scheduler. It fetches the configured
// forecast horizon for every terminal from every model and exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"ferrycast/internal/config"
	"ferrycast/internal/db"
	"ferrycast/internal/external"
	"ferrycast/internal/scheduler"
	"ferrycast/internal/weather"
)

const userAgent = "ferrycast-ingest/1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	corridors := db.NewCorridorRepository(pool)
	forecasts := db.NewForecastRepository(pool)
	source := weather.NewModelForecastClient(
		cfg.Weather.ForecastBaseURL,
		external.NewBaseClient(&http.Client{}, "model-forecasts", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.ProviderTimeout,
	)

	svc := scheduler.NewIngestionService(corridors, source, forecasts,
		cfg.Weather.ForecastHorizonHours, clockwork.NewRealClock(), logger)

	results, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}

	for _, r := range results {
		if r.Failures > 0 && r.Terminals == 0 {
			return fmt.Errorf("model %s ingested nothing (%d failures)", r.Model, r.Failures)
		}
	}
	return nil
}
