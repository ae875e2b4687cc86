package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"statusboard/app/internal/models"
)

const dayLayout = "2006-01-02"

// ErrIncidentNotFound is returned when deleting an unknown incident
var ErrIncidentNotFound = errors.New("incident not found")

// SaveIncident records the uptime of a monitor for one day. A second record
// for the same monitor and day replaces the first.
func SaveIncident(inc *models.Incident) error {
	if _, err := time.Parse(dayLayout, inc.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", inc.Date, err)
	}
	if inc.Uptime < 0 || inc.Uptime > 100 {
		return fmt.Errorf("uptime %.3f out of range", inc.Uptime)
	}
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	inc.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	_, err := DB.Exec(`INSERT INTO incidents (id, monitor_id, day, uptime, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(monitor_id, day) DO UPDATE SET
			id=excluded.id, uptime=excluded.uptime, note=excluded.note, created_at=excluded.created_at`,
		inc.ID, inc.MonitorID, inc.Date, inc.Uptime, inc.Note, inc.CreatedAt)
	return err
}

// ListIncidents returns the incidents of a monitor, newest day first.
// A zero monitorID lists every monitor.
func ListIncidents(monitorID int64) ([]models.Incident, error) {
	query := `SELECT id, monitor_id, day, uptime, COALESCE(note, ''), created_at FROM incidents`
	args := []any{}
	if monitorID != 0 {
		query += " WHERE monitor_id = ?"
		args = append(args, monitorID)
	}
	query += " ORDER BY day DESC, monitor_id"

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incidents := []models.Incident{}
	for rows.Next() {
		var inc models.Incident
		if err := rows.Scan(&inc.ID, &inc.MonitorID, &inc.Date, &inc.Uptime, &inc.Note, &inc.CreatedAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// DeleteIncident removes an incident by ID
func DeleteIncident(id string) error {
	res, err := DB.Exec(`DELETE FROM incidents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

// IncidentValues returns the recorded uptime per day for a monitor within
// [from, to], keyed by "2006-01-02".
func IncidentValues(monitorID int64, from, to time.Time) (map[string]float64, error) {
	rows, err := DB.Query(`SELECT day, uptime FROM incidents
		WHERE monitor_id = ? AND day >= ? AND day <= ?`,
		monitorID, from.Format(dayLayout), to.Format(dayLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var day string
		var uptime float64
		if err := rows.Scan(&day, &uptime); err != nil {
			return nil, err
		}
		values[day] = uptime
	}
	return values, rows.Err()
}

// GetIncident loads a single incident
func GetIncident(id string) (*models.Incident, error) {
	var inc models.Incident
	err := DB.QueryRow(`SELECT id, monitor_id, day, uptime, COALESCE(note, ''), created_at
		FROM incidents WHERE id = ?`, id).
		Scan(&inc.ID, &inc.MonitorID, &inc.Date, &inc.Uptime, &inc.Note, &inc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}
