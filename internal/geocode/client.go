// Package geocode talks to the external geocoding/population collaborator.
// Lookups are best-effort: a failure never blocks placement, it just leaves
// labels null for the backfill worker to patch later.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PlaceInfo is what the collaborator knows about a coordinate.
type PlaceInfo struct {
	County     string `json:"county"`
	State      string `json:"state"`
	MetroArea  string `json:"metro_area"`
	Population int    `json:"population"`
}

// Lookup is implemented by geocoding providers. A nil PlaceInfo with a nil
// error means the collaborator had no data for the point.
type Lookup interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*PlaceInfo, error)
}

// Client is an HTTP geocoding client.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient creates a geocoding client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent with every request (API keys etc).
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// ReverseGeocode resolves county/state/metro/population for a coordinate.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*PlaceInfo, error) {
	endpoint := fmt.Sprintf("%s/reverse?lat=%f&lng=%f", c.baseURL, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoder returned status code: %d, response: %s", resp.StatusCode, string(body))
	}

	var info PlaceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &info, nil
}
