package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ferrycast/internal/external"
	"ferrycast/internal/types"
)

// HourlyForecast is one per-hour model forecast value for a terminal.
type HourlyForecast struct {
	TargetHour time.Time
	Snapshot   types.WeatherSnapshot
}

// ModelForecastSource fetches hourly numerical model forecasts.
type ModelForecastSource interface {
	FetchHourly(ctx context.Context, terminal types.Terminal, model types.ForecastModel, hours int) ([]HourlyForecast, error)
}

// modelPayload is the forecast provider's hourly wire shape: parallel arrays
// indexed by hour.
type modelPayload struct {
	Hourly struct {
		Time          []string   `json:"time"`
		WindSpeed     []*float64 `json:"wind_speed_10m"`
		WindGusts     []float64  `json:"wind_gusts_10m"`
		WindDirection []float64  `json:"wind_direction_10m"`
	} `json:"hourly"`
}

// ModelForecastClient is the HTTP adapter for the numerical forecast
// provider. One client serves both models via the model query parameter.
type ModelForecastClient struct {
	baseURL string
	client  *external.BaseClient
	timeout time.Duration
}

// NewModelForecastClient builds the adapter.
func NewModelForecastClient(baseURL string, client *external.BaseClient, timeout time.Duration) *ModelForecastClient {
	return &ModelForecastClient{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
	}
}

// FetchHourly pulls up to hours of per-hour forecasts for the terminal's
// coordinates from the given model. Hours whose wind-speed value is absent
// are dropped; an entirely windless payload is rejected.
func (c *ModelForecastClient) FetchHourly(ctx context.Context, terminal types.Terminal, model types.ForecastModel, hours int) ([]HourlyForecast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f&model=%s&hours=%d&hourly=wind_speed_10m,wind_gusts_10m,wind_direction_10m",
		c.baseURL, terminal.Lat, terminal.Lon, model, hours)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building model forecast request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		fetchCounter.WithLabelValues(string(model), "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fetchCounter.WithLabelValues(string(model), "error").Inc()
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("forecast provider returned %d for model %s", resp.StatusCode, model),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "reading forecast response", err)
	}

	var payload modelPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "parsing forecast response", err)
	}

	h := payload.Hourly
	var out []HourlyForecast
	for i, tstr := range h.Time {
		if i >= len(h.WindSpeed) || h.WindSpeed[i] == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tstr)
		if err != nil {
			continue
		}
		snap := types.WeatherSnapshot{
			WindSpeedMph: *h.WindSpeed[i],
		}
		if i < len(h.WindGusts) {
			snap.WindGustsMph = h.WindGusts[i]
		}
		if i < len(h.WindDirection) {
			snap.WindDirectionDeg = h.WindDirection[i]
		}
		snap.AdvisoryLevel = AdvisoryForWind(snap.WindSpeedMph)

		out = append(out, HourlyForecast{
			TargetHour: ts.UTC().Truncate(time.Hour),
			Snapshot:   snap,
		})
	}

	if len(out) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("forecast payload for model %s carried no usable wind data", model), nil)
	}

	fetchCounter.WithLabelValues(string(model), "ok").Inc()
	return out, nil
}
