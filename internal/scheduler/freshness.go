package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"ferrycast/internal/types"
)

// ForecastReader reads the newest ingested forecast row for a terminal.
type ForecastReader interface {
	LatestForTerminal(ctx context.Context, terminalID string) (*types.ForecastRecord, error)
}

// FreshnessProbe reports whether forecast ingestion has produced recent
// data. It samples the first known terminal; an ingestion run writes every
// terminal, so one terminal is representative of the whole run.
type FreshnessProbe struct {
	terminals TerminalLister
	forecasts ForecastReader
	maxAge    time.Duration
	clock     clockwork.Clock
}

// NewFreshnessProbe wires a FreshnessProbe. maxAge is the oldest a newest
// forecast row may be before the probe reports unhealthy.
func NewFreshnessProbe(terminals TerminalLister, forecasts ForecastReader, maxAge time.Duration, clock clockwork.Clock) *FreshnessProbe {
	return &FreshnessProbe{
		terminals: terminals,
		forecasts: forecasts,
		maxAge:    maxAge,
		clock:     clock,
	}
}

// Name identifies the probe in the health response.
func (p *FreshnessProbe) Name() string { return "forecast_ingestion" }

// Check fails when no forecast has been ingested yet or the newest row has
// aged past maxAge.
func (p *FreshnessProbe) Check(ctx context.Context) error {
	terminals, err := p.terminals.ListTerminals(ctx)
	if err != nil {
		return err
	}
	if len(terminals) == 0 {
		return nil
	}

	rec, err := p.forecasts.LatestForTerminal(ctx, terminals[0].ID)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New("no forecasts ingested")
	}
	if age := p.clock.Since(rec.IngestedAt); age > p.maxAge {
		return fmt.Errorf("newest forecast is %s old", age.Round(time.Minute))
	}
	return nil
}
