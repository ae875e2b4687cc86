package models

import "time"

// Monitor status texts as reported by the backend.
const (
	StatusPaused     = "Paused"
	StatusNotChecked = "Not checked yet"
	StatusUp         = "Up"
	StatusSeemsDown  = "Seems down"
	StatusDown       = "Down"
	StatusUnknown    = "Unknown"
)

// MonitorStatus is one monitor's snapshot as served by GET /api/monitors
type MonitorStatus struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	LastCheck   string  `json:"last_check"`
	StatusClass string  `json:"status_class"`
}

// IsUp reports whether the monitor counts as operational
func (m MonitorStatus) IsUp() bool {
	return m.Status == StatusUp
}

// IsDown reports whether the monitor is confirmed or suspected down
func (m MonitorStatus) IsDown() bool {
	return m.Status == StatusDown || m.Status == StatusSeemsDown
}

// ResponseTime is a single latency sample
type ResponseTime struct {
	Timestamp int64 `json:"timestamp"`
	Value     int   `json:"value"`
}

// ResponseTimes summarises the latency samples of a monitor
type ResponseTimes struct {
	Avg  float64        `json:"avg"`
	Min  int            `json:"min"`
	Max  int            `json:"max"`
	Data []ResponseTime `json:"data"`
}

// MonitorDetail extends MonitorStatus with ranges and latency data
type MonitorDetail struct {
	MonitorStatus
	CustomUptimeRanges map[string]float64 `json:"custom_uptime_ranges"`
	ResponseTimes      ResponseTimes      `json:"response_times"`
}

// Event is an up/down transition from the monitor log
type Event struct {
	Type      string    `json:"type"` // "up" or "down"
	Title     string    `json:"title"`
	Time      time.Time `json:"-"`
	Timestamp string    `json:"timestamp"`
	Duration  int64     `json:"duration"` // seconds
	Details   *string   `json:"details"`
}

// MonitorWithEvents is the payload of GET /api/monitor/{id}
type MonitorWithEvents struct {
	Monitor MonitorDetail `json:"monitor"`
	Events  []Event       `json:"events"`
}

// Envelope wraps every API response
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitzero"`
	Error   string `json:"error,omitempty"`
}

// Incident is a recorded uptime value for one monitor on one calendar day
type Incident struct {
	ID        string  `json:"id"`
	MonitorID int64   `json:"monitor_id"`
	Date      string  `json:"date"` // YYYY-MM-DD
	Uptime    float64 `json:"uptime"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// LogEntry is a persisted operational log line
type LogEntry struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Monitor   string `json:"monitor,omitempty"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

// LogStats counts log lines per level
type LogStats struct {
	TotalLogs  int `json:"total_logs"`
	ErrorCount int `json:"error_count"`
	WarnCount  int `json:"warn_count"`
	InfoCount  int `json:"info_count"`
}
