package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches raw GTFS-RT protobuf payloads. The upstream feeds are
// public; no authentication header is required.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a feed client with the given per-fetch timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Fetch retrieves one feed and returns the raw protobuf bytes. The fetch is
// bounded by the client timeout independently of ctx.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
