package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ferrycast/internal/external"
	"ferrycast/internal/types"
)

var fetchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ferrycast_weather_fetch_total",
	Help: "Outbound weather provider fetches by source and result.",
}, []string{"source", "result"})

// OperatorReading is one operator-reported terminal conditions row, written
// by the out-of-scope status collaborator. WindSpeedMph is a pointer because
// the operator feed sometimes reports conditions without a wind value; such
// rows are not eligible to be authoritative.
type OperatorReading struct {
	TerminalID       string
	WindSpeedMph     *float64
	WindGustsMph     float64
	WindDirectionDeg float64
	Advisory         types.AdvisoryLevel
	ReportedAt       time.Time
}

// Snapshot converts an eligible reading into an immutable snapshot.
// Callers must have checked WindSpeedMph is non-nil.
func (r *OperatorReading) Snapshot() types.WeatherSnapshot {
	return types.WeatherSnapshot{
		WindSpeedMph:     *r.WindSpeedMph,
		WindGustsMph:     r.WindGustsMph,
		WindDirectionDeg: r.WindDirectionDeg,
		AdvisoryLevel:    r.Advisory,
	}
}

// OperatorConditionsStore reads the operator-reported conditions feed.
type OperatorConditionsStore interface {
	// LatestReading returns the newest reading for the terminal, or nil when
	// the terminal has never reported.
	LatestReading(ctx context.Context, terminalID string) (*OperatorReading, error)
}

// TerminalStore resolves terminal metadata (ZIP code, town, coordinates).
type TerminalStore interface {
	GetTerminal(ctx context.Context, terminalID string) (*types.Terminal, error)
}

// LocalObservation is a current-conditions reading from the ZIP/locality
// provider.
type LocalObservation struct {
	Snapshot   types.WeatherSnapshot `json:"snapshot"`
	ZIPCode    string                `json:"zip_code"`
	TownName   string                `json:"town_name"`
	ObservedAt time.Time             `json:"observed_at"`
}

// LocalObservationSource fetches current conditions for a terminal's locality.
type LocalObservationSource interface {
	FetchCurrent(ctx context.Context, terminal types.Terminal) (*LocalObservation, error)
}

// localObsPayload is the provider's wire shape. WindSpeedMph is a pointer so
// a payload lacking a wind-speed field is rejected rather than read as calm.
type localObsPayload struct {
	WindSpeedMph     *float64 `json:"wind_speed_mph"`
	WindGustsMph     float64  `json:"wind_gusts_mph"`
	WindDirectionDeg float64  `json:"wind_direction_deg"`
	Advisory         string   `json:"advisory"`
	TownName         string   `json:"town_name"`
	ObservedAt       string   `json:"observed_at"`
}

// LocalObservationClient is the HTTP adapter for the ZIP/locality provider.
// It populates the injected read-through cache and serves stale entries when
// a refresh fails.
type LocalObservationClient struct {
	baseURL string
	client  *external.BaseClient
	cache   *ConditionsCache
	timeout time.Duration
}

// NewLocalObservationClient builds the adapter. timeout bounds each provider
// call; cache may not be nil.
func NewLocalObservationClient(baseURL string, client *external.BaseClient, cache *ConditionsCache, timeout time.Duration) *LocalObservationClient {
	return &LocalObservationClient{
		baseURL: baseURL,
		client:  client,
		cache:   cache,
		timeout: timeout,
	}
}

// FetchCurrent returns the current locality observation for the terminal's
// ZIP code. Resolution order: fresh cache entry, live fetch (cached on
// success), stale cache entry if the fetch failed. A typed error is returned
// only when no value at all is available.
func (c *LocalObservationClient) FetchCurrent(ctx context.Context, terminal types.Terminal) (*LocalObservation, error) {
	key := "zip:" + terminal.ZIPCode

	if obs, ok := c.cache.Get(key); ok {
		fetchCounter.WithLabelValues("local_zip", "cache_hit").Inc()
		return &obs, nil
	}

	obs, err := c.fetch(ctx, terminal)
	if err != nil {
		if stale, ok := c.cache.GetStale(key); ok {
			fetchCounter.WithLabelValues("local_zip", "stale").Inc()
			return &stale, nil
		}
		fetchCounter.WithLabelValues("local_zip", "error").Inc()
		return nil, err
	}

	c.cache.Put(key, *obs)
	fetchCounter.WithLabelValues("local_zip", "ok").Inc()
	return obs, nil
}

func (c *LocalObservationClient) fetch(ctx context.Context, terminal types.Terminal) (*LocalObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v1/current?zip=%s", c.baseURL, url.QueryEscape(terminal.ZIPCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building local observation request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("local observation provider returned %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "reading local observation response", err)
	}

	var payload localObsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "parsing local observation response", err)
	}
	if payload.WindSpeedMph == nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "local observation payload missing wind speed", nil)
	}

	observedAt := time.Now().UTC()
	if payload.ObservedAt != "" {
		if ts, err := time.Parse(time.RFC3339, payload.ObservedAt); err == nil {
			observedAt = ts.UTC()
		}
	}

	town := payload.TownName
	if town == "" {
		town = terminal.TownName
	}

	return &LocalObservation{
		Snapshot: types.WeatherSnapshot{
			WindSpeedMph:     *payload.WindSpeedMph,
			WindGustsMph:     payload.WindGustsMph,
			WindDirectionDeg: payload.WindDirectionDeg,
			AdvisoryLevel:    parseAdvisory(payload.Advisory),
		},
		ZIPCode:    terminal.ZIPCode,
		TownName:   town,
		ObservedAt: observedAt,
	}, nil
}

// parseAdvisory maps provider advisory strings onto the domain enum.
// Unrecognized values degrade to none rather than failing the fetch.
func parseAdvisory(s string) types.AdvisoryLevel {
	switch s {
	case "small_craft", "small_craft_advisory":
		return types.AdvisorySmallCraft
	case "gale", "gale_warning":
		return types.AdvisoryGale
	case "storm", "storm_warning":
		return types.AdvisoryStorm
	case "hurricane", "hurricane_warning":
		return types.AdvisoryHurricane
	default:
		return types.AdvisoryNone
	}
}

// AdvisoryForWind derives an advisory level from sustained wind when a
// forecast model provides no advisory of its own. Thresholds follow the
// marine warning ladder in mph.
func AdvisoryForWind(mph float64) types.AdvisoryLevel {
	switch {
	case mph >= 74:
		return types.AdvisoryHurricane
	case mph >= 55:
		return types.AdvisoryStorm
	case mph >= 39:
		return types.AdvisoryGale
	case mph >= 20:
		return types.AdvisorySmallCraft
	default:
		return types.AdvisoryNone
	}
}
