// Package scheduler runs the periodic forecast ingestion job: every known
// terminal is fetched from every forecast model and the hourly values are
// appended to the forecast record log.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"ferrycast/internal/types"
	"ferrycast/internal/weather"
)

// TerminalLister enumerates the terminals to ingest forecasts for.
type TerminalLister interface {
	ListTerminals(ctx context.Context) ([]types.Terminal, error)
}

// ForecastWriter appends hourly forecast rows.
type ForecastWriter interface {
	InsertHours(ctx context.Context, records []types.ForecastRecord) error
}

// IngestResult summarizes one ingestion run per model.
type IngestResult struct {
	Model     types.ForecastModel `json:"model"`
	Terminals int                 `json:"terminals"`
	Hours     int                 `json:"hours"`
	Failures  int                 `json:"failures"`
}

// IngestionService fans forecast fetches out across models and terminals.
// Per-terminal failures are tolerated; a run only fails outright when the
// terminal list itself cannot be read.
type IngestionService struct {
	terminals TerminalLister
	source    weather.ModelForecastSource
	store     ForecastWriter
	horizon   int
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewIngestionService wires an IngestionService. horizon is the number of
// forecast hours requested per terminal.
func NewIngestionService(terminals TerminalLister, source weather.ModelForecastSource, store ForecastWriter, horizon int, clock clockwork.Clock, logger *slog.Logger) *IngestionService {
	return &IngestionService{
		terminals: terminals,
		source:    source,
		store:     store,
		horizon:   horizon,
		clock:     clock,
		logger:    logger,
	}
}

var ingestModels = []types.ForecastModel{types.ModelGFS, types.ModelECMWF}

// Run ingests the forecast horizon for every terminal from every model. The
// models run concurrently; within a model, terminals are fetched in
// sequence to keep provider load predictable.
func (s *IngestionService) Run(ctx context.Context) ([]IngestResult, error) {
	terminals, err := s.terminals.ListTerminals(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]IngestResult, len(ingestModels))
	g, gctx := errgroup.WithContext(ctx)
	for i, model := range ingestModels {
		i, model := i, model
		g.Go(func() error {
			results[i] = s.runModel(gctx, model, terminals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		s.logger.InfoContext(ctx, "forecast ingestion complete",
			slog.String("model", string(r.Model)),
			slog.Int("terminals", r.Terminals),
			slog.Int("hours", r.Hours),
			slog.Int("failures", r.Failures))
	}
	return results, nil
}

func (s *IngestionService) runModel(ctx context.Context, model types.ForecastModel, terminals []types.Terminal) IngestResult {
	result := IngestResult{Model: model}
	ingestedAt := s.clock.Now().UTC()

	for _, terminal := range terminals {
		hours, err := s.source.FetchHourly(ctx, terminal, model, s.horizon)
		if err != nil {
			result.Failures++
			s.logger.WarnContext(ctx, "forecast fetch failed",
				slog.String("terminal_id", terminal.ID),
				slog.String("model", string(model)),
				slog.Any("error", err))
			continue
		}

		records := make([]types.ForecastRecord, 0, len(hours))
		for _, h := range hours {
			records = append(records, types.ForecastRecord{
				TerminalID: terminal.ID,
				Model:      model,
				TargetHour: h.TargetHour,
				Snapshot:   h.Snapshot,
				IngestedAt: ingestedAt,
			})
		}
		if err := s.store.InsertHours(ctx, records); err != nil {
			result.Failures++
			s.logger.WarnContext(ctx, "forecast persist failed",
				slog.String("terminal_id", terminal.ID),
				slog.String("model", string(model)),
				slog.Any("error", err))
			continue
		}

		result.Terminals++
		result.Hours += len(records)
	}
	return result
}
