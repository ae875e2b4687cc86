package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"

	"statusboard/app/internal/board"
	"statusboard/app/internal/database"
	"statusboard/app/internal/models"
	"statusboard/app/internal/refresh"
	"statusboard/app/internal/uptimerobot"
)

// MonitorSource is the upstream the JSON API proxies
type MonitorSource interface {
	FetchMonitors(ctx context.Context) ([]models.MonitorStatus, error)
	FetchMonitorDetail(ctx context.Context, id string) (models.MonitorWithEvents, error)
}

// IncidentHook is told which monitor's incidents changed
type IncidentHook func(ctx context.Context, monitorID int64)

func captureError(r *http.Request, err error) {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK[T any](w http.ResponseWriter, code int, data T) {
	writeJSON(w, code, models.Envelope[T]{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, models.Envelope[struct{}]{Success: false, Error: msg})
}

// HandleMonitors returns the status of every monitor
func HandleMonitors(src MonitorSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		monitors, err := src.FetchMonitors(r.Context())
		if err != nil {
			log.Printf("Error fetching monitor data: %v", err)
			captureError(r, fmt.Errorf("fetching monitors: %w", err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeOK(w, http.StatusOK, monitors)
	}
}

// HandleMonitor returns one monitor with its uptime ranges, response times and events
func HandleMonitor(src MonitorSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid monitor id")
			return
		}
		detail, err := src.FetchMonitorDetail(r.Context(), id)
		if err != nil {
			log.Printf("Error fetching monitor detail id=%s: %v", id, err)
			code := http.StatusInternalServerError
			if errors.Is(err, uptimerobot.ErrMonitorNotFound) {
				code = http.StatusNotFound
			} else {
				captureError(r, fmt.Errorf("fetching monitor %s: %w", id, err))
			}
			writeError(w, code, err.Error())
			return
		}
		writeOK(w, http.StatusOK, detail)
	}
}

// HandleBoard returns the rendered board
func HandleBoard(b *board.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, http.StatusOK, b.Snapshot())
	}
}

// HandleIncidents lists incident records, optionally for ?monitor=ID
func HandleIncidents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var monitorID int64
		if v := r.URL.Query().Get("monitor"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid monitor id")
				return
			}
			monitorID = id
		}
		incidents, err := database.ListIncidents(monitorID)
		if err != nil {
			log.Printf("Error listing incidents: %v", err)
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeOK(w, http.StatusOK, incidents)
	}
}

type incidentRequest struct {
	MonitorID int64   `json:"monitor_id"`
	Date      string  `json:"date"`
	Uptime    float64 `json:"uptime"`
	Note      string  `json:"note"`
}

// HandleCreateIncident records the uptime of a monitor for one day
func HandleCreateIncident(hook IncidentHook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req incidentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.MonitorID <= 0 {
			writeError(w, http.StatusBadRequest, "monitor_id is required")
			return
		}

		inc := &models.Incident{MonitorID: req.MonitorID, Date: req.Date, Uptime: req.Uptime, Note: req.Note}
		if err := database.SaveIncident(inc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		_ = database.InsertLog(database.LogLevelInfo, database.LogCategoryAdmin,
			strconv.FormatInt(inc.MonitorID, 10), "Incident recorded", inc.Date)
		log.Printf("Incident recorded monitor=%d date=%s uptime=%.3f", inc.MonitorID, inc.Date, inc.Uptime)

		if hook != nil {
			hook(r.Context(), inc.MonitorID)
		}
		writeOK(w, http.StatusCreated, inc)
	}
}

// HandleDeleteIncident removes an incident record
func HandleDeleteIncident(hook IncidentHook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		inc, err := database.GetIncident(id)
		if errors.Is(err, database.ErrIncidentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if err := database.DeleteIncident(id); err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		_ = database.InsertLog(database.LogLevelInfo, database.LogCategoryAdmin,
			strconv.FormatInt(inc.MonitorID, 10), "Incident deleted", inc.Date)

		if hook != nil {
			hook(r.Context(), inc.MonitorID)
		}
		writeOK(w, http.StatusOK, map[string]string{"deleted": id})
	}
}

// HandleLogs returns persisted operational logs
func HandleLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		if offset < 0 {
			offset = 0
		}
		logs, err := database.GetLogs(limit, q.Get("level"), q.Get("category"), q.Get("monitor"), offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		stats, err := database.GetLogStats()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"logs": logs, "stats": stats})
	}
}

// HandleClearLogs deletes logs older than ?days=N, or every log when days is 0 or missing
func HandleClearLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 0
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
				return
			}
			days = n
		}
		if err := database.ClearLogs(days); err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		_ = database.InsertLog(database.LogLevelInfo, database.LogCategoryAdmin, "", "Logs cleared", fmt.Sprintf("older_than_days=%d", days))
		writeOK(w, http.StatusOK, map[string]int{"older_than_days": days})
	}
}

// HandleHealth reports the refresh loop's recent poll outcomes
func HandleHealth(status func() refresh.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if status == nil {
			writeOK(w, http.StatusOK, refresh.Status{})
			return
		}
		writeOK(w, http.StatusOK, status())
	}
}
