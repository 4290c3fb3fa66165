// Package tide provides the HTTP adapter for the tide prediction provider.
package tide

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

// Source yields the tidal state near a terminal. A nil swing with a nil
// error means the provider has no station coverage for the terminal.
type Source interface {
	CurrentSwing(ctx context.Context, terminal types.Terminal) (*types.TideSwing, error)
}

type tidePayload struct {
	SwingFeet    *float64 `json:"swing_feet"`
	CurrentPhase string   `json:"current_phase"`
}

// Client is the HTTP adapter for the tide provider.
type Client struct {
	baseURL string
	client  *external.BaseClient
	timeout time.Duration
}

// NewClient builds the adapter.
func NewClient(baseURL string, client *external.BaseClient, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
	}
}

// CurrentSwing fetches the present tidal swing for the terminal's
// coordinates. A 404 from the provider means no station covers the
// location and maps to (nil, nil).
func (c *Client) CurrentSwing(ctx context.Context, terminal types.Terminal) (*types.TideSwing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v1/tides/current?latitude=%.4f&longitude=%.4f", c.baseURL, terminal.Lat, terminal.Lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building tide request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamTide,
			fmt.Sprintf("tide provider returned %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTide, "reading tide response", err)
	}

	var payload tidePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTide, "parsing tide response", err)
	}
	if payload.SwingFeet == nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTide, "tide payload missing swing", nil)
	}

	return &types.TideSwing{
		SwingFeet:    *payload.SwingFeet,
		CurrentPhase: parsePhase(payload.CurrentPhase),
	}, nil
}

func parsePhase(s string) types.TidePhase {
	switch s {
	case "rising":
		return types.TideRising
	case "falling":
		return types.TideFalling
	case "high":
		return types.TideHigh
	case "low":
		return types.TideLow
	default:
		return types.TideRising
	}
}
