package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solariq/solariq/internal/config"
)

// Client is an HTTP client for the external telemetry service. All calls
// carry their own timeout derived from the configured read timeout, so a
// hung read can never stall a request past its budget.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a telemetry client from the given config.
func NewClient(cfg config.TelemetryConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		timeout: cfg.ReadTimeout,
	}
}

// TodayStatus reads the point-in-time production summary from /today_status.
func (c *Client) TodayStatus(ctx context.Context) (*TodayStatus, error) {
	var status TodayStatus
	if err := c.getJSON(ctx, "/today_status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// History reads the dated solar/load series from /history. The service
// returns the series newest-window-first; the order is preserved as-is.
func (c *Client) History(ctx context.Context) ([]Reading, error) {
	var readings []Reading
	if err := c.getJSON(ctx, "/history", nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// SolarStatus reads the billing breakdown from /solar_status for the given
// tariff category and average power.
func (c *Client) SolarStatus(ctx context.Context, category string, avgPower float64) (*SolarStatus, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("avg_power", strconv.FormatFloat(avgPower, 'f', -1, 64))

	var status SolarStatus
	if err := c.getJSON(ctx, "/solar_status", params, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// predictResponse is the wire shape of the /predict endpoint.
type predictResponse struct {
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	Predictions []ForecastPoint `json:"predictions"`
}

// Predict requests a solar/load forecast for the given date range
// (YYYY-MM-DD) via POST /predict.
func (c *Client) Predict(ctx context.Context, startDate, endDate string) ([]ForecastPoint, error) {
	body, err := json.Marshal(map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling predict request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict returned status %d", resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding predict response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("predict failed: %s", parsed.Message)
	}

	return parsed.Predictions, nil
}

// getJSON performs a timeout-bounded GET against the service and decodes
// the JSON response into out. A non-2xx response is an error.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}
