// Package client fetches locations and observations from the meteodash
// warehouse API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lox/meteodash/internal/httputil"
	"github.com/lox/meteodash/internal/metrics"
	"github.com/lox/meteodash/internal/models"
)

const (
	LocationsPath = "/api/weather/locations"
	DataPath      = "/api/weather/data"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("network error")
	// ErrDecode means the response body was not the expected JSON.
	ErrDecode = errors.New("decode error")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httputil.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListLocations returns the distinct city names known to the warehouse.
func (c *Client) ListLocations(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.getJSON(ctx, "locations", LocationsPath, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// GetObservations returns the observations matching the criteria, each with
// its joined dimensions when the warehouse has them. A single attempt is made.
func (c *Client) GetObservations(ctx context.Context, criteria models.FilterCriteria) ([]models.Observation, error) {
	path := DataPath
	if q := criteria.Query().Encode(); q != "" {
		path += "?" + q
	}
	var obs []models.Observation
	if err := c.getJSON(ctx, "data", path, &obs); err != nil {
		return nil, err
	}
	return obs, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.ClientRequestsTotal.WithLabelValues(endpoint, status).Inc()
		metrics.ClientLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %v", ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: fetch %s: status %d: %s", ErrNetwork, endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, endpoint, err)
	}
	status = "ok"
	return nil
}
