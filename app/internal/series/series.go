// Package series builds the per-day uptime sequence behind a monitor's history bars.
package series

import (
	"errors"
	"math"
	"time"

	"github.com/guregu/null/v5"

	"statusboard/app/internal/models"
)

// DateKey is the layout used to key days, e.g. incident records.
const DateKey = "2006-01-02"

// Supported lookback windows.
const (
	Window60  = 60
	Window90  = 90
	Window180 = 180
)

// ErrInvalidWindow is returned for a window shorter than one day.
var ErrInvalidWindow = errors.New("series: window must be at least one day")

// DayPoint is one calendar day in a history window.
// An invalid Value means no observation exists for that day.
type DayPoint struct {
	Date  time.Time  `json:"date"`
	Value null.Float `json:"value"`
}

// Key returns the day's DateKey
func (p DayPoint) Key() string {
	return p.Date.Format(DateKey)
}

// Range is a stretch of confirmed uptime or downtime.
// Value, when set, replaces the default 100 (up) or 0 (down).
type Range struct {
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
	Up    bool       `json:"up"`
	Value null.Float `json:"value"`
}

// Source is everything known about a monitor's history.
type Source struct {
	// Ranges is the sparse observed history. Days before the earliest range are no-data.
	Ranges []Range
	// Incidents holds recorded day values keyed by DateKey; they override computed values.
	Incidents map[string]float64
	// Current is the live value for today, if known.
	Current null.Float
}

// Day truncates t to local midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(math.Round(ub.Sub(ua).Hours() / 24))
}

// Build returns exactly n DayPoints covering [today-n+1, today], oldest first.
func Build(n int, today time.Time, src Source) ([]DayPoint, error) {
	if n < 1 {
		return nil, ErrInvalidWindow
	}

	end := Day(today)
	points := make([]DayPoint, n)
	for i := 0; i < n; i++ {
		day := end.AddDate(0, 0, i-(n-1))
		points[i] = DayPoint{Date: day, Value: valueFor(day, src.Ranges)}
		if v, ok := src.Incidents[day.Format(DateKey)]; ok {
			points[i].Value = null.FloatFrom(v)
		}
	}

	if src.Current.Valid {
		points[n-1].Value = src.Current
	}
	return points, nil
}

// valueFor resolves one day from the ranges touching it. Ranges are [Start, End).
// Downtime wins over uptime.
func valueFor(day time.Time, ranges []Range) null.Float {
	next := day.AddDate(0, 0, 1)
	var up, down null.Float

	for _, r := range ranges {
		if !r.Start.Before(next) || !r.End.After(day) {
			continue
		}
		if r.Up {
			up = lowest(up, valueOr(r.Value, 100))
		} else {
			down = lowest(down, valueOr(r.Value, 0))
		}
	}

	if down.Valid {
		return down
	}
	return up
}

func valueOr(v null.Float, def float64) float64 {
	if v.Valid {
		return v.Float64
	}
	return def
}

func lowest(cur null.Float, v float64) null.Float {
	if !cur.Valid || v < cur.Float64 {
		return null.FloatFrom(v)
	}
	return cur
}

// PatchToday replaces the value of the newest point in place.
func PatchToday(points []DayPoint, v null.Float) {
	if len(points) == 0 {
		return
	}
	points[len(points)-1].Value = v
}

// Advance shifts the window so its newest point is today's date.
// New days start as no-data and the window length is kept.
func Advance(points []DayPoint, today time.Time) []DayPoint {
	n := len(points)
	if n == 0 {
		return points
	}

	end := Day(today)
	shift := DaysBetween(points[n-1].Date, end)
	if shift <= 0 {
		return points
	}

	out := make([]DayPoint, 0, n)
	if shift < n {
		out = append(out, points[shift:]...)
	}
	for len(out) < n {
		day := end.AddDate(0, 0, len(out)-(n-1))
		out = append(out, DayPoint{Date: day})
	}
	return out
}

// RangesFromEvents converts log events into ranges. An event without a
// duration is still ongoing and runs until now.
func RangesFromEvents(events []models.Event, now time.Time) []Range {
	ranges := make([]Range, 0, len(events))
	for _, ev := range events {
		if ev.Time.IsZero() {
			continue
		}
		end := ev.Time.Add(time.Duration(ev.Duration) * time.Second)
		if ev.Duration <= 0 {
			end = now
		}
		ranges = append(ranges, Range{
			Start: ev.Time,
			End:   end,
			Up:    ev.Type == "up",
		})
	}
	return ranges
}

// LiveValue maps a polled monitor to today's day value.
func LiveValue(m models.MonitorStatus) null.Float {
	switch {
	case m.IsUp():
		return null.FloatFrom(100)
	case m.IsDown():
		return null.FloatFrom(0)
	default:
		return null.Float{}
	}
}
