package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferrycast/internal/types"
)

var testTerminal = types.Terminal{
	ID:       "woods-hole",
	Name:     "Woods Hole",
	TownName: "Woods Hole",
	ZIPCode:  "02543",
	Lat:      41.5234,
	Lon:      -70.6686,
}

type stubOperatorStore struct {
	reading *OperatorReading
	err     error
}

func (s *stubOperatorStore) LatestReading(ctx context.Context, terminalID string) (*OperatorReading, error) {
	return s.reading, s.err
}

type stubLocalSource struct {
	obs   *LocalObservation
	err   error
	calls int
}

func (s *stubLocalSource) FetchCurrent(ctx context.Context, terminal types.Terminal) (*LocalObservation, error) {
	s.calls++
	return s.obs, s.err
}

type stubTerminalStore struct {
	terminal *types.Terminal
	err      error
}

func (s *stubTerminalStore) GetTerminal(ctx context.Context, terminalID string) (*types.Terminal, error) {
	return s.terminal, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fresh(wind float64, age time.Duration, now time.Time) *OperatorReading {
	return &OperatorReading{
		TerminalID:       "woods-hole",
		WindSpeedMph:     &wind,
		WindGustsMph:     wind + 8,
		WindDirectionDeg: 220,
		Advisory:         types.AdvisorySmallCraft,
		ReportedAt:       now.Add(-age),
	}
}

func localObs() *LocalObservation {
	return &LocalObservation{
		Snapshot: types.WeatherSnapshot{WindSpeedMph: 18, AdvisoryLevel: types.AdvisoryNone},
		ZIPCode:  "02543",
		TownName: "Woods Hole",
	}
}

func TestResolve_FreshOperatorReadingWins(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	local := &stubLocalSource{obs: localObs()}
	r := NewAuthorityResolver(
		&stubOperatorStore{reading: fresh(24, 29*time.Minute, now)},
		local,
		&stubTerminalStore{terminal: &testTerminal},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "woods-hole", now)

	assert.Equal(t, types.AuthorityOperator, result.Authority)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 24.0, result.Snapshot.WindSpeedMph)
	assert.Equal(t, 29, result.AgeMinutes)
	assert.Equal(t, 0, local.calls, "local source must not be consulted when the operator is fresh")
}

func TestResolve_StaleOperatorFallsThroughToLocal(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	r := NewAuthorityResolver(
		&stubOperatorStore{reading: fresh(24, 31*time.Minute, now)},
		&stubLocalSource{obs: localObs()},
		&stubTerminalStore{terminal: &testTerminal},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "woods-hole", now)

	assert.Equal(t, types.AuthorityLocalZIP, result.Authority)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, "02543", result.ZIPCode)
	assert.Equal(t, "Woods Hole", result.TownName)
}

func TestResolve_ReadingAtExactWindowBoundaryIsFresh(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	r := NewAuthorityResolver(
		&stubOperatorStore{reading: fresh(24, 30*time.Minute, now)},
		&stubLocalSource{obs: localObs()},
		&stubTerminalStore{terminal: &testTerminal},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "woods-hole", now)
	assert.Equal(t, types.AuthorityOperator, result.Authority)
}

func TestResolve_OperatorReadingWithoutWindIsIneligible(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	reading := fresh(24, 5*time.Minute, now)
	reading.WindSpeedMph = nil

	r := NewAuthorityResolver(
		&stubOperatorStore{reading: reading},
		&stubLocalSource{obs: localObs()},
		&stubTerminalStore{terminal: &testTerminal},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "woods-hole", now)
	assert.Equal(t, types.AuthorityLocalZIP, result.Authority)
}

func TestResolve_OperatorErrorDegradesToLocal(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	r := NewAuthorityResolver(
		&stubOperatorStore{err: errors.New("connection refused")},
		&stubLocalSource{obs: localObs()},
		&stubTerminalStore{terminal: &testTerminal},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "woods-hole", now)
	assert.Equal(t, types.AuthorityLocalZIP, result.Authority)
}

func TestResolve_AllSourcesFailingYieldsUnavailable(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	r := NewAuthorityResolver(
		&stubOperatorStore{},
		&stubLocalSource{err: errors.New("provider down")},
		&stubTerminalStore{terminal: &testTerminal},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "woods-hole", now)

	assert.Equal(t, types.AuthorityUnavailable, result.Authority)
	assert.Nil(t, result.Snapshot)
}

func TestResolve_UnknownTerminalYieldsUnavailable(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	local := &stubLocalSource{obs: localObs()}
	r := NewAuthorityResolver(
		&stubOperatorStore{},
		local,
		&stubTerminalStore{err: types.NewAppError(types.ErrCodeNotFoundTerminal, "terminal not found", nil)},
		30*time.Minute,
		discardLogger(),
	)

	result := r.Resolve(context.Background(), "nowhere", now)

	assert.Equal(t, types.AuthorityUnavailable, result.Authority)
	assert.Equal(t, 0, local.calls)
}
