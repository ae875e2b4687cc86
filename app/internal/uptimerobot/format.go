package uptimerobot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"statusboard/app/internal/models"
)

const (
	logTypeDown = 1
	logTypeUp   = 2
)

type apiResponse struct {
	Stat     string       `json:"stat"`
	Error    *apiError    `json:"error"`
	Monitors []apiMonitor `json:"monitors"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type apiMonitor struct {
	ID                 int64             `json:"id"`
	FriendlyName       string            `json:"friendly_name"`
	URL                string            `json:"url"`
	Status             int               `json:"status"`
	AllTimeUptimeRatio number            `json:"all_time_uptime_ratio"`
	LastCheck          number            `json:"last_check"`
	CustomUptimeRanges string            `json:"custom_uptime_ranges"`
	ResponseTimes      []apiResponseTime `json:"response_times"`
	Logs               []apiLog          `json:"logs"`
}

type apiResponseTime struct {
	Datetime int64 `json:"datetime"`
	Value    int   `json:"value"`
}

type apiLog struct {
	Type     int        `json:"type"`
	Datetime int64      `json:"datetime"`
	Duration int64      `json:"duration"`
	Reason   *apiReason `json:"reason"`
}

type apiReason struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (r *apiReason) String() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Code + " " + r.Detail)
}

// number accepts either a JSON number or a numeric string; UptimeRobot
// sends uptime ratios as strings.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = number(strings.TrimSpace(s))
		return nil
	}
	*n = number(b)
	return nil
}

func (n number) Float() (float64, error) {
	if n == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", string(n))
	}
	return v, nil
}

func (n number) Int() (int64, error) {
	v, err := n.Float()
	return int64(v), err
}

// StatusText maps an UptimeRobot status code to its display text.
func StatusText(code int) string {
	switch code {
	case 0:
		return models.StatusPaused
	case 1:
		return models.StatusNotChecked
	case 2:
		return models.StatusUp
	case 8:
		return models.StatusSeemsDown
	case 9:
		return models.StatusDown
	default:
		return models.StatusUnknown
	}
}

// StatusClass maps an UptimeRobot status code to a badge class.
func StatusClass(code int) string {
	switch code {
	case 1:
		return "info"
	case 2:
		return "success"
	case 8:
		return "warning"
	case 9:
		return "danger"
	default:
		return "secondary"
	}
}

// FormatTimestamp renders a unix timestamp, or "N/A" when unset.
func FormatTimestamp(ts int64, loc *time.Location) string {
	if ts <= 0 {
		return "N/A"
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc).Format("2006-01-02 15:04:05")
}

var uptimeRangeKeys = []string{"1", "7", "30", "90"}

// ParseUptimeRanges turns "99.9-100-98.5-97" into a map keyed by day count.
// Missing or unparseable parts default to 100.
func ParseUptimeRanges(s string) map[string]float64 {
	out := make(map[string]float64, len(uptimeRangeKeys))
	parts := strings.Split(s, "-")
	for i, key := range uptimeRangeKeys {
		out[key] = 100
		if s == "" || i >= len(parts) {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64); err == nil {
			out[key] = v
		}
	}
	return out
}

func summarizeResponseTimes(samples []apiResponseTime) models.ResponseTimes {
	rt := models.ResponseTimes{Data: make([]models.ResponseTime, 0, len(samples))}
	if len(samples) == 0 {
		return rt
	}
	sum := 0
	rt.Min = math.MaxInt
	for _, s := range samples {
		rt.Data = append(rt.Data, models.ResponseTime{Timestamp: s.Datetime, Value: s.Value})
		sum += s.Value
		rt.Min = min(rt.Min, s.Value)
		rt.Max = max(rt.Max, s.Value)
	}
	rt.Avg = float64(sum) / float64(len(samples))
	return rt
}
