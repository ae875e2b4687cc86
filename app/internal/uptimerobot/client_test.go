package uptimerobot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusboard/app/internal/models"
)

func newTestServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/getMonitors", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "key", r.PostForm.Get("api_key"))
		assert.Equal(t, "json", r.PostForm.Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// --- status mapping ---

func TestStatusText(t *testing.T) {
	cases := map[int][2]string{
		0:  {models.StatusPaused, "secondary"},
		1:  {models.StatusNotChecked, "info"},
		2:  {models.StatusUp, "success"},
		8:  {models.StatusSeemsDown, "warning"},
		9:  {models.StatusDown, "danger"},
		42: {models.StatusUnknown, "secondary"},
	}
	for code, want := range cases {
		assert.Equal(t, want[0], StatusText(code), "code %d", code)
		assert.Equal(t, want[1], StatusClass(code), "code %d", code)
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "N/A", FormatTimestamp(0, time.UTC))
	assert.Equal(t, "2024-03-01 12:00:00", FormatTimestamp(1709294400, time.UTC))
}

func TestParseUptimeRanges(t *testing.T) {
	got := ParseUptimeRanges("99.5-100-98.25-97")
	assert.Equal(t, map[string]float64{"1": 99.5, "7": 100, "30": 98.25, "90": 97}, got)

	got = ParseUptimeRanges("")
	assert.Equal(t, map[string]float64{"1": 100, "7": 100, "30": 100, "90": 100}, got)

	got = ParseUptimeRanges("50-x")
	assert.Equal(t, 50.0, got["1"])
	assert.Equal(t, 100.0, got["7"])
	assert.Equal(t, 100.0, got["90"])
}

// --- client ---

func TestFetchMonitors(t *testing.T) {
	srv := newTestServer(t, `{"stat":"ok","monitors":[
		{"id":1,"friendly_name":"API","url":"https://a","status":2,"all_time_uptime_ratio":"99.981","last_check":1709294400},
		{"id":2,"friendly_name":"","url":"https://b","status":9,"all_time_uptime_ratio":0},
		{"id":3,"friendly_name":"Bad","status":2,"all_time_uptime_ratio":"n/a"}
	]}`, nil)

	c := NewClient("key", srv.URL, 0)
	c.Location = time.UTC
	got, err := c.FetchMonitors(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2, "unparseable monitor is skipped")

	assert.Equal(t, models.MonitorStatus{
		ID: 1, Name: "API", URL: "https://a", Status: "Up", Uptime: 99.981,
		LastCheck: "2024-03-01 12:00:00", StatusClass: "success",
	}, got[0])
	assert.Equal(t, "Unnamed Monitor", got[1].Name)
	assert.Equal(t, "N/A", got[1].LastCheck)
	assert.True(t, got[1].IsDown())
}

func TestFetchMonitors_NoAPIKey(t *testing.T) {
	c := NewClient("", "http://127.0.0.1:1", 0)
	_, err := c.FetchMonitors(context.Background())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestFetchMonitors_StatFail(t *testing.T) {
	srv := newTestServer(t, `{"stat":"fail","error":{"type":"invalid_parameter","message":"api_key is wrong"}}`, nil)
	c := NewClient("key", srv.URL, 0)
	_, err := c.FetchMonitors(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is wrong")
}

func TestFetchMonitors_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, `{"stat":"ok","monitors":[{"id":1,"friendly_name":"A","status":2,"all_time_uptime_ratio":"100"}]}`, &hits)
	c := NewClient("key", srv.URL, time.Minute)
	defer c.Close()

	for range 3 {
		_, err := c.FetchMonitors(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchMonitorDetail(t *testing.T) {
	srv := newTestServer(t, `{"stat":"ok","monitors":[{
		"id":7,"friendly_name":"Web","url":"https://w","status":2,"all_time_uptime_ratio":"99.9",
		"custom_uptime_ranges":"100-99.5-99-98",
		"response_times":[{"datetime":1,"value":100},{"datetime":2,"value":300}],
		"logs":[
			{"type":2,"datetime":1709294400,"duration":600},
			{"type":1,"datetime":1709290800,"duration":3600,"reason":{"code":"503","detail":"Service Unavailable"}},
			{"type":98,"datetime":1709200000,"duration":0}
		]
	}]}`, nil)

	c := NewClient("key", srv.URL, 0)
	c.Location = time.UTC
	got, err := c.FetchMonitorDetail(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.Monitor.ID)
	assert.Equal(t, 99.5, got.Monitor.CustomUptimeRanges["7"])
	assert.Equal(t, 200.0, got.Monitor.ResponseTimes.Avg)
	assert.Equal(t, 100, got.Monitor.ResponseTimes.Min)
	assert.Equal(t, 300, got.Monitor.ResponseTimes.Max)
	assert.Len(t, got.Monitor.ResponseTimes.Data, 2)

	require.Len(t, got.Events, 2)
	assert.Equal(t, "up", got.Events[0].Type)
	assert.Equal(t, "Running again", got.Events[0].Title)
	assert.Nil(t, got.Events[0].Details)
	assert.Equal(t, "down", got.Events[1].Type)
	require.NotNil(t, got.Events[1].Details)
	assert.Equal(t, "503 Service Unavailable", *got.Events[1].Details)
	assert.Equal(t, time.Unix(1709290800, 0).UTC(), got.Events[1].Time)
}

func TestFetchMonitorDetail_NotFound(t *testing.T) {
	srv := newTestServer(t, `{"stat":"ok","monitors":[]}`, nil)
	c := NewClient("key", srv.URL, 0)
	_, err := c.FetchMonitorDetail(context.Background(), "404")
	assert.True(t, errors.Is(err, ErrMonitorNotFound))
}

func TestForget_RefetchesDetail(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, `{"stat":"ok","monitors":[{"id":7,"friendly_name":"Web","status":2,"all_time_uptime_ratio":"100"}]}`, &hits)
	c := NewClient("key", srv.URL, time.Minute)
	defer c.Close()

	for range 2 {
		_, err := c.FetchMonitorDetail(context.Background(), "7")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	c.Forget("7")
	_, err := c.FetchMonitorDetail(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	// uncached client: no-op
	NewClient("key", srv.URL, 0).Forget("7")
}
