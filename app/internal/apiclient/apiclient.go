// Package apiclient reads the status API the board is rendered from.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"statusboard/app/internal/models"
)

// ErrUnsuccessful is wrapped by errors for envelopes with success=false.
var ErrUnsuccessful = errors.New("api reported failure")

// Client fetches monitor snapshots from GET {BaseURL}/api/monitors.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the status API rooted at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchMonitors returns the current monitor list.
func (c *Client) FetchMonitors(ctx context.Context) ([]models.MonitorStatus, error) {
	return get[[]models.MonitorStatus](ctx, c, "/api/monitors")
}

// FetchMonitor returns one monitor with its events.
func (c *Client) FetchMonitor(ctx context.Context, id int64) (models.MonitorWithEvents, error) {
	return get[models.MonitorWithEvents](ctx, c, fmt.Sprintf("/api/monitor/%d", id))
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var env models.Envelope[T]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return env.Data, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return env.Data, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	// error envelopes come with 4xx/5xx, so decode before looking at the code
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env.Data, fmt.Errorf("GET %s: http %d: decoding response: %w", path, resp.StatusCode, err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("http %d", resp.StatusCode)
		}
		var zero T
		return zero, fmt.Errorf("GET %s: %w: %s", path, ErrUnsuccessful, msg)
	}
	return env.Data, nil
}
