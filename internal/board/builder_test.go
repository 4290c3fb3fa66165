package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferrycast/internal/scoring"
	"ferrycast/internal/types"
)

var (
	woodsHole = types.Terminal{ID: "woods-hole", Name: "Woods Hole", TownName: "Woods Hole", ZIPCode: "02543", Lat: 41.5234, Lon: -70.6686}
	vineyard  = types.Terminal{ID: "vineyard-haven", Name: "Vineyard Haven", TownName: "Vineyard Haven", ZIPCode: "02568", Lat: 41.4543, Lon: -70.6035}

	whvhCorridor = types.Corridor{
		ID:               "wh-vh",
		Name:             "Woods Hole / Vineyard Haven",
		Operator:         "ssa",
		OriginTerminalID: "woods-hole",
		DestTerminalID:   "vineyard-haven",
		OutboundRouteID:  "wh-vh-ssa",
		ReturnRouteID:    "vh-wh-ssa",
	}
)

type stubCorridorStore struct {
	corridor *types.Corridor
	err      error
}

func (s *stubCorridorStore) GetCorridor(ctx context.Context, corridorID string) (*types.Corridor, error) {
	return s.corridor, s.err
}

func (s *stubCorridorStore) GetTerminal(ctx context.Context, terminalID string) (*types.Terminal, error) {
	switch terminalID {
	case woodsHole.ID:
		return &woodsHole, nil
	case vineyard.ID:
		return &vineyard, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundTerminal, "terminal not found", nil)
}

type stubSailingLister struct {
	sailings []types.Sailing
	err      error
}

func (s *stubSailingLister) ListSailings(ctx context.Context, corridorID, serviceDate string) ([]types.Sailing, error) {
	return s.sailings, s.err
}

type stubResolver struct {
	results map[string]types.WeatherSourceResult
	calls   map[string]int
}

func (s *stubResolver) Resolve(ctx context.Context, terminalID string, now time.Time) types.WeatherSourceResult {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[terminalID]++
	if r, ok := s.results[terminalID]; ok {
		return r
	}
	return types.Unavailable()
}

type stubTideSource struct {
	swing *types.TideSwing
	err   error
}

func (s *stubTideSource) CurrentSwing(ctx context.Context, terminal types.Terminal) (*types.TideSwing, error) {
	return s.swing, s.err
}

type stubForecastStore struct {
	records map[string]*types.ForecastRecord
}

func (s *stubForecastStore) LatestForHour(ctx context.Context, terminalID string, model types.ForecastModel, at time.Time) (*types.ForecastRecord, error) {
	return s.records[terminalID], nil
}

type stubHistoryStore struct {
	match *scoring.HistoricalMatch
	calls int
}

func (s *stubHistoryStore) HistoricalStats(ctx context.Context, routeID string, windSpeedMph float64) (*scoring.HistoricalMatch, error) {
	s.calls++
	return s.match, nil
}

type capturePredictionWriter struct {
	inserted []types.PredictionRecord
	err      error
}

func (c *capturePredictionWriter) Insert(ctx context.Context, p *types.PredictionRecord) error {
	if c.err != nil {
		return c.err
	}
	c.inserted = append(c.inserted, *p)
	return nil
}

type stubEventCounter struct {
	count int
	err   error
}

func (s *stubEventCounter) CountCanceledEvents(ctx context.Context, corridorID, serviceDate string) (int, error) {
	return s.count, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func operatorWeather(wind float64) types.WeatherSourceResult {
	return types.WeatherSourceResult{
		Authority: types.AuthorityOperator,
		Snapshot: &types.WeatherSnapshot{
			WindSpeedMph:     wind,
			WindGustsMph:     wind + 10,
			WindDirectionDeg: 225,
			AdvisoryLevel:    types.AdvisorySmallCraft,
		},
	}
}

func sailing(id string, dep time.Time, dir types.Direction, status types.SailingStatus) types.Sailing {
	routeID := "wh-vh-ssa"
	if dir == types.DirectionReturn {
		routeID = "vh-wh-ssa"
	}
	return types.Sailing{
		ID:                 id,
		CorridorID:         "wh-vh",
		RouteID:            routeID,
		DepartureTimeLocal: dep,
		Direction:          dir,
		Status:             status,
	}
}

func newTestBuilder(sailings *stubSailingLister, resolver *stubResolver, predictions *capturePredictionWriter, events *stubEventCounter) *Builder {
	logger := discardLogger()
	var guard *Guard
	if events != nil {
		guard = NewGuard(events, logger)
	}
	return NewBuilder(
		&stubCorridorStore{corridor: &whvhCorridor},
		sailings,
		resolver,
		&stubTideSource{swing: &types.TideSwing{SwingFeet: 2.0, CurrentPhase: types.TideRising}},
		&stubForecastStore{},
		&stubHistoryStore{},
		predictions,
		guard,
		scoring.NewEngine("v2"),
		clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)),
		logger,
	)
}

func TestBuild_UnknownCorridorFails(t *testing.T) {
	b := NewBuilder(
		&stubCorridorStore{err: types.NewAppError(types.ErrCodeNotFoundCorridor, "corridor not found", nil)},
		&stubSailingLister{},
		&stubResolver{},
		nil, nil, nil, nil, nil,
		scoring.NewEngine("v2"),
		clockwork.NewFakeClock(),
		discardLogger(),
	)

	_, err := b.Build(context.Background(), "nope", "2026-03-14", Options{})
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundCorridor, appErr.Code)
}

func TestBuild_EmptyScheduleYieldsValidEmptyBoard(t *testing.T) {
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(12),
		"vineyard-haven": operatorWeather(14),
	}}
	b := newTestBuilder(&stubSailingLister{}, resolver, &capturePredictionWriter{}, &stubEventCounter{})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)

	assert.Equal(t, "wh-vh", result.Board.CorridorID)
	assert.Equal(t, "2026-03-14", result.Board.ServiceDateLocal)
	assert.Empty(t, result.Board.Sailings)
	require.NotNil(t, result.Guard)
	assert.True(t, result.Guard.GuardValid)
}

func TestBuild_MergesDirectionsInDepartureOrder(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s3", day.Add(10*time.Hour), types.DirectionReturn, types.SailingOnTime),
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingOnTime),
		sailing("s2", day.Add(9*time.Hour), types.DirectionReturn, types.SailingOnTime),
		sailing("s4", day.Add(10*time.Hour), types.DirectionOutbound, types.SailingOnTime),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(12),
		"vineyard-haven": operatorWeather(14),
	}}
	b := newTestBuilder(lister, resolver, &capturePredictionWriter{}, &stubEventCounter{})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)
	require.Len(t, result.Board.Sailings, 4)

	ids := make([]string, 0, 4)
	for _, e := range result.Board.Sailings {
		ids = append(ids, e.Sailing.ID)
	}
	// Departure ascending; the 10:00 tie resolves outbound before return.
	assert.Equal(t, []string{"s1", "s2", "s4", "s3"}, ids)
}

func TestBuild_ResolvesWeatherOncePerTerminal(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingOnTime),
		sailing("s2", day.Add(9*time.Hour), types.DirectionOutbound, types.SailingOnTime),
		sailing("s3", day.Add(10*time.Hour), types.DirectionReturn, types.SailingOnTime),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(12),
		"vineyard-haven": operatorWeather(14),
	}}
	b := newTestBuilder(lister, resolver, &capturePredictionWriter{}, &stubEventCounter{})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.calls["woods-hole"])
	assert.Equal(t, 1, resolver.calls["vineyard-haven"])
	assert.Len(t, result.Weather, 2)
}

func TestBuild_UnavailableWeatherStillScores(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingOnTime),
	}}
	b := newTestBuilder(lister, &stubResolver{}, &capturePredictionWriter{}, &stubEventCounter{})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)
	require.Len(t, result.Board.Sailings, 1)

	entry := result.Board.Sailings[0]
	assert.Equal(t, types.ConfidenceLow, entry.Risk.Confidence)
	assert.Equal(t, types.AuthorityUnavailable, result.Weather["woods-hole"].Authority)
}

func TestBuild_WritesOnePredictionPerSailing(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingOnTime),
		sailing("s2", day.Add(9*time.Hour), types.DirectionReturn, types.SailingOnTime),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(25),
		"vineyard-haven": operatorWeather(25),
	}}
	predictions := &capturePredictionWriter{}
	b := newTestBuilder(lister, resolver, predictions, &stubEventCounter{})

	_, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)

	require.Len(t, predictions.inserted, 2)
	assert.Equal(t, "wh-vh-ssa", predictions.inserted[0].RouteID)
	assert.Equal(t, "v2", predictions.inserted[0].ModelVersion)
	assert.NotEmpty(t, predictions.inserted[0].ID)
	require.NotNil(t, predictions.inserted[0].SailingDepartureAt)
}

func TestBuild_PredictionWriteFailureDoesNotFailBoard(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingOnTime),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole": operatorWeather(25),
	}}
	predictions := &capturePredictionWriter{err: errors.New("disk full")}
	b := newTestBuilder(lister, resolver, predictions, &stubEventCounter{})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)
	assert.Len(t, result.Board.Sailings, 1)
}

func TestBuild_GuardFlagsHiddenCancellations(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingCanceled),
		sailing("s2", day.Add(9*time.Hour), types.DirectionOutbound, types.SailingCanceled),
		sailing("s3", day.Add(10*time.Hour), types.DirectionReturn, types.SailingOnTime),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(40),
		"vineyard-haven": operatorWeather(40),
	}}
	b := newTestBuilder(lister, resolver, &capturePredictionWriter{}, &stubEventCounter{count: 3})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)

	require.NotNil(t, result.Guard)
	assert.Equal(t, 2, result.Guard.ResponseCanceledCount)
	assert.Equal(t, 3, result.Guard.DBCanceledCount)
	assert.False(t, result.Guard.GuardValid)
	// The audit never blocks: the board still carries every sailing.
	assert.Len(t, result.Board.Sailings, 3)
}

func TestBuild_GuardAllowsBoardLeadingEventStream(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingCanceled),
		sailing("s2", day.Add(9*time.Hour), types.DirectionReturn, types.SailingCanceled),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(40),
		"vineyard-haven": operatorWeather(40),
	}}
	b := newTestBuilder(lister, resolver, &capturePredictionWriter{}, &stubEventCounter{count: 1})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)

	require.NotNil(t, result.Guard)
	assert.True(t, result.Guard.GuardValid)
}

func TestBuild_GuardAuditSkippedOnStoreError(t *testing.T) {
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(12),
		"vineyard-haven": operatorWeather(12),
	}}
	b := newTestBuilder(&stubSailingLister{}, resolver, &capturePredictionWriter{},
		&stubEventCounter{err: errors.New("timeout")})

	result, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)
	assert.Nil(t, result.Guard)
}

func TestBuild_ForecastSubstitution(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lister := &stubSailingLister{sailings: []types.Sailing{
		sailing("s1", day.Add(8*time.Hour), types.DirectionOutbound, types.SailingScheduled),
	}}
	resolver := &stubResolver{results: map[string]types.WeatherSourceResult{
		"woods-hole":     operatorWeather(5),
		"vineyard-haven": operatorWeather(5),
	}}
	forecasts := &stubForecastStore{records: map[string]*types.ForecastRecord{
		"woods-hole": {
			TerminalID: "woods-hole",
			Model:      types.ModelGFS,
			TargetHour: day.Add(8 * time.Hour),
			Snapshot: types.WeatherSnapshot{
				WindSpeedMph:     45,
				WindGustsMph:     60,
				WindDirectionDeg: 225,
				AdvisoryLevel:    types.AdvisoryGale,
			},
		},
	}}

	logger := discardLogger()
	b := NewBuilder(
		&stubCorridorStore{corridor: &whvhCorridor},
		lister,
		resolver,
		nil,
		forecasts,
		nil,
		&capturePredictionWriter{},
		NewGuard(&stubEventCounter{}, logger),
		scoring.NewEngine("v2"),
		clockwork.NewFakeClockAt(day.Add(6*time.Hour)),
		logger,
	)

	current, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{})
	require.NoError(t, err)
	forecasted, err := b.Build(context.Background(), "wh-vh", "2026-03-14", Options{UseForecast: true})
	require.NoError(t, err)

	calm := current.Board.Sailings[0].Risk
	stormy := forecasted.Board.Sailings[0].Risk
	assert.Greater(t, stormy.Score, calm.Score)
	// Forecast-based scores are never high confidence.
	assert.NotEqual(t, types.ConfidenceHigh, stormy.Confidence)
}
