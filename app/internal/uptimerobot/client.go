// Package uptimerobot fetches monitor status from the UptimeRobot v2 API.
package uptimerobot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"statusboard/app/internal/cache"
	"statusboard/app/internal/models"
)

// DefaultBaseURL is the public UptimeRobot API root.
const DefaultBaseURL = "https://api.uptimerobot.com/v2"

var (
	// ErrNoAPIKey is returned when no API key was configured.
	ErrNoAPIKey = errors.New("uptimerobot: API key not configured")
	// ErrMonitorNotFound is returned when a detail lookup matches nothing.
	ErrMonitorNotFound = errors.New("uptimerobot: monitor not found")
)

// Client is an UptimeRobot API client with a short response cache.
type Client struct {
	BaseURL  string
	APIKey   string
	HTTP     *http.Client
	Location *time.Location

	monitors *cache.Cache[[]models.MonitorStatus]
	details  *cache.Cache[models.MonitorWithEvents]
}

// NewClient creates a client. A zero cacheTTL disables caching.
func NewClient(apiKey, baseURL string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Location: time.Local,
	}
	if cacheTTL > 0 {
		c.monitors = cache.New[[]models.MonitorStatus](cacheTTL)
		c.details = cache.New[models.MonitorWithEvents](cacheTTL)
	}
	return c
}

// Close stops the cache janitors
func (c *Client) Close() {
	if c.monitors != nil {
		c.monitors.Stop()
		c.details.Stop()
	}
}

func (c *Client) getMonitors(ctx context.Context, form url.Values) ([]apiMonitor, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	form.Set("api_key", c.APIKey)
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/getMonitors", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uptimerobot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("uptimerobot http %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding uptimerobot response: %w", err)
	}
	if out.Stat != "" && out.Stat != "ok" {
		msg := "unknown error"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("uptimerobot: %s", msg)
	}
	return out.Monitors, nil
}

// FetchMonitors returns the status of every monitor on the account.
func (c *Client) FetchMonitors(ctx context.Context) ([]models.MonitorStatus, error) {
	if c.monitors != nil {
		if cached, ok := c.monitors.Get("monitors"); ok {
			return cached, nil
		}
	}

	raw, err := c.getMonitors(ctx, url.Values{
		"all_time_uptime_ratio": {"1"},
		"response_times":        {"1"},
		"response_times_limit":  {"1"},
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		log.Printf("No monitors found in UptimeRobot response")
	}

	monitors := make([]models.MonitorStatus, 0, len(raw))
	for _, m := range raw {
		status, err := c.toStatus(m)
		if err != nil {
			log.Printf("Skipping monitor id=%d: %v", m.ID, err)
			continue
		}
		monitors = append(monitors, status)
	}

	if c.monitors != nil {
		c.monitors.Set("monitors", monitors)
	}
	return monitors, nil
}

// Forget drops the cached detail of one monitor so the next fetch goes upstream.
func (c *Client) Forget(id string) {
	if c.details != nil {
		c.details.Delete("detail:" + id)
	}
}

// FetchMonitorDetail returns one monitor with uptime ranges, response times and its event log.
func (c *Client) FetchMonitorDetail(ctx context.Context, id string) (models.MonitorWithEvents, error) {
	if c.details != nil {
		if cached, ok := c.details.Get("detail:" + id); ok {
			return cached, nil
		}
	}

	raw, err := c.getMonitors(ctx, url.Values{
		"monitors":             {id},
		"custom_uptime_ratios": {"1-7-30-90"},
		"response_times":       {"1"},
		"response_times_limit": {"100"},
		"logs":                 {"1"},
		"logs_limit":           {"100"},
	})
	if err != nil {
		return models.MonitorWithEvents{}, err
	}
	if len(raw) == 0 {
		return models.MonitorWithEvents{}, fmt.Errorf("%w: %s", ErrMonitorNotFound, id)
	}

	m := raw[0]
	status, err := c.toStatus(m)
	if err != nil {
		return models.MonitorWithEvents{}, fmt.Errorf("monitor %s: %w", id, err)
	}

	out := models.MonitorWithEvents{
		Monitor: models.MonitorDetail{
			MonitorStatus:      status,
			CustomUptimeRanges: ParseUptimeRanges(m.CustomUptimeRanges),
			ResponseTimes:      summarizeResponseTimes(m.ResponseTimes),
		},
		Events: c.toEvents(m.Logs),
	}

	if c.details != nil {
		c.details.Set("detail:"+id, out)
	}
	return out, nil
}

func (c *Client) toStatus(m apiMonitor) (models.MonitorStatus, error) {
	uptime, err := m.AllTimeUptimeRatio.Float()
	if err != nil {
		return models.MonitorStatus{}, fmt.Errorf("all_time_uptime_ratio: %w", err)
	}
	name := m.FriendlyName
	if name == "" {
		name = "Unnamed Monitor"
	}
	lastCheck, _ := m.LastCheck.Int()
	return models.MonitorStatus{
		ID:          m.ID,
		Name:        name,
		URL:         m.URL,
		Status:      StatusText(m.Status),
		Uptime:      uptime,
		LastCheck:   FormatTimestamp(lastCheck, c.Location),
		StatusClass: StatusClass(m.Status),
	}, nil
}

func (c *Client) toEvents(logs []apiLog) []models.Event {
	events := make([]models.Event, 0, len(logs))
	for _, l := range logs {
		ev := models.Event{
			Timestamp: FormatTimestamp(l.Datetime, c.Location),
			Duration:  l.Duration,
		}
		switch l.Type {
		case logTypeUp:
			ev.Type, ev.Title = "up", "Running again"
		case logTypeDown:
			ev.Type, ev.Title = "down", "Down"
		default:
			continue
		}
		if l.Datetime > 0 {
			ev.Time = time.Unix(l.Datetime, 0).In(c.Location)
		}
		if d := l.Reason.String(); d != "" {
			ev.Details = &d
		}
		events = append(events, ev)
	}
	return events
}
