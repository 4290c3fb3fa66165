// Package main is the one-shot backtest runner. It links unlinked
// predictions to observed outcomes, prints the resulting accuracy metrics,
// and exits. Safe to run repeatedly; linking is idempotent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"ferrycast/internal/backtest"
	"ferrycast/internal/config"
	"ferrycast/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	limit := flag.Int("limit", 0, "predictions to examine (0 uses the configured default)")
	flag.Parse()

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

	svc := backtest.NewService(
		db.NewPredictionRepository(pool),
		db.NewOutcomeRepository(pool),
		db.NewBacktestRepository(pool),
		backtest.Config{
			DefaultLimit:       cfg.Jobs.BacktestDefaultLimit,
			MaxLimit:           cfg.Jobs.BacktestMaxLimit,
			LinkTolerance:      cfg.Jobs.LinkTolerance,
			EnrichmentDeadline: cfg.Jobs.EnrichmentDeadline,
		},
		clockwork.NewRealClock(),
		logger,
	)

	result, err := svc.Run(ctx, *limit)
	if err != nil {
		return fmt.Errorf("backtest run: %w", err)
	}

	metrics, err := svc.Metrics(ctx, "", "")
	if err != nil {
		return fmt.Errorf("computing metrics: %w", err)
	}

	logger.InfoContext(ctx, "backtest summary",
		slog.Int("examined", result.Examined),
		slog.Int("linked", result.Linked),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors),
		slog.Int64("duration_ms", result.DurationMS),
		slog.Int("metric_groups", len(metrics)))
	for _, m := range metrics {
		logger.InfoContext(ctx, "accuracy",
			slog.String("model_version", m.ModelVersion),
			slog.String("corridor_id", m.CorridorID),
			slog.Int("sample_size", m.SampleSize),
			slog.Float64("hit_rate", m.HitRate),
			slog.Float64("calibration_error", m.CalibrationError))
	}
	return nil
}
