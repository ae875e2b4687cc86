// Package board holds the rendered state of the status page: one card per
// monitor plus the overall status banner. The refresh loop patches it in place
// and page/websocket handlers read snapshots of it.
package board

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"statusboard/app/internal/chart"
	"statusboard/app/internal/models"
	"statusboard/app/internal/series"
)

// Overall states of the banner.
const (
	StateOperational   = "operational"
	StatePartialOutage = "partial_outage"
	StateFullOutage    = "full_outage"
)

// Card is the rendered state of one monitor, keyed by its data-monitor-id
type Card struct {
	ID           int64       `json:"id"`
	Key          string      `json:"key"`
	Name         string      `json:"name"`
	URL          string      `json:"url"`
	Badge        string      `json:"badge"`
	BadgeClass   string      `json:"badge_class"`
	UptimeText   string      `json:"uptime_text"`
	UptimeDanger bool        `json:"uptime_danger"`
	LastCheck    string      `json:"last_check"`
	Chart        chart.Chart `json:"chart"`

	points []series.DayPoint
	index  int
}

// Aggregate is the overall status banner
type Aggregate struct {
	State string `json:"state"`
	Text  string `json:"text"`
	Class string `json:"class"`
	Up    int    `json:"up"`
	Total int    `json:"total"`
}

// Snapshot is a consistent copy of the board
type Snapshot struct {
	Cards      []Card    `json:"cards"`
	Aggregate  Aggregate `json:"aggregate"`
	LastUpdate string    `json:"last_update"`
	UpdatedAt  time.Time `json:"updated_at"`
	Window     int       `json:"window"`
	// Cause names the change that produced a pushed snapshot
	Cause string `json:"cause,omitempty"`
}

// Snapshot causes
const (
	CauseSeed    = "seed"
	CausePoll    = "poll"
	CauseRebuild = "rebuild"
)

// Options configures a Board
type Options struct {
	Window    int
	Renderer  chart.Renderer
	Anonymize bool
	Location  *time.Location
}

// Board is safe for concurrent use.
type Board struct {
	mu        sync.RWMutex
	opts      Options
	order     []int64
	cards     map[int64]*Card
	aggregate Aggregate
	updatedAt time.Time

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// New creates an empty board
func New(opts Options) *Board {
	if opts.Window < 1 {
		opts.Window = series.Window90
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Board{
		opts:      opts,
		cards:     make(map[int64]*Card),
		aggregate: aggregateOf(0, 0),
		subs:      make(map[int]func(Snapshot)),
	}
}

// Seed creates one card per monitor and builds its history from sources.
// It replaces any existing cards.
func (b *Board) Seed(monitors []models.MonitorStatus, sources map[int64]series.Source, now time.Time) error {
	now = now.In(b.opts.Location)

	order := make([]int64, 0, len(monitors))
	cards := make(map[int64]*Card, len(monitors))
	for i, m := range monitors {
		src := sources[m.ID]
		if !src.Current.Valid {
			src.Current = series.LiveValue(m)
		}
		points, err := series.Build(b.opts.Window, now, src)
		if err != nil {
			return fmt.Errorf("building series for monitor %d: %w", m.ID, err)
		}

		c := &Card{ID: m.ID, Key: strconv.FormatInt(m.ID, 10), points: points, index: i}
		b.fill(c, m)
		c.Chart = b.opts.Renderer.Build(points)

		order = append(order, m.ID)
		cards[m.ID] = c
	}

	b.mu.Lock()
	b.order = order
	b.cards = cards
	b.aggregate = b.aggregateLocked()
	b.updatedAt = now
	b.mu.Unlock()

	b.notify(CauseSeed)
	return nil
}

// Apply patches the cards of the polled monitors in place, refreshes today's
// bar and recomputes the banner. Monitors without a card are skipped.
func (b *Board) Apply(monitors []models.MonitorStatus, now time.Time) {
	now = now.In(b.opts.Location)

	b.mu.Lock()
	for _, m := range monitors {
		c, ok := b.cards[m.ID]
		if !ok {
			continue
		}
		b.fill(c, m)

		advanced := series.Advance(c.points, now)
		rolled := len(advanced) > 0 && len(c.points) > 0 && !advanced[0].Date.Equal(c.points[0].Date)
		c.points = advanced
		series.PatchToday(c.points, series.LiveValue(m))

		if rolled {
			c.Chart = b.opts.Renderer.Build(c.points)
		} else {
			b.opts.Renderer.PatchLast(&c.Chart, c.points)
		}
	}
	b.aggregate = b.aggregateLocked()
	b.updatedAt = now
	b.mu.Unlock()

	b.notify(CausePoll)
}

// Rebuild recomputes the history of one card from src, keeping today's live
// value unless src carries its own. It reports whether the card exists.
func (b *Board) Rebuild(id int64, src series.Source, now time.Time) (bool, error) {
	now = now.In(b.opts.Location)

	b.mu.Lock()
	c, ok := b.cards[id]
	if !ok {
		b.mu.Unlock()
		return false, nil
	}
	if n := len(c.points); !src.Current.Valid && n > 0 {
		src.Current = c.points[n-1].Value
	}
	points, err := series.Build(b.opts.Window, now, src)
	if err != nil {
		b.mu.Unlock()
		return true, fmt.Errorf("building series for monitor %d: %w", id, err)
	}
	c.points = points
	c.Chart = b.opts.Renderer.Build(points)
	b.mu.Unlock()

	b.notify(CauseRebuild)
	return true, nil
}

func (b *Board) fill(c *Card, m models.MonitorStatus) {
	c.Name = m.Name
	if b.opts.Anonymize {
		c.Name = fmt.Sprintf("System %02d", c.index+1)
	}
	c.URL = m.URL
	c.Badge = m.Status
	c.BadgeClass = "bg-" + m.StatusClass
	c.UptimeText = fmt.Sprintf("%.3f%%", m.Uptime)
	c.UptimeDanger = m.Uptime == 0
	c.LastCheck = m.LastCheck
}

// aggregateLocked summarises the cards on the board; monitors without a card
// do not count.
func (b *Board) aggregateLocked() Aggregate {
	up := 0
	for _, id := range b.order {
		if b.cards[id].Badge == models.StatusUp {
			up++
		}
	}
	return aggregateOf(up, len(b.order))
}

func aggregateOf(up, total int) Aggregate {
	a := Aggregate{Up: up, Total: total}
	switch {
	case up == total:
		a.State, a.Text, a.Class = StateOperational, "Operational", "success"
	case up == 0:
		a.State, a.Text, a.Class = StateFullOutage, "Down", "danger"
	default:
		a.State, a.Text, a.Class = StatePartialOutage, "Partial outage", "warning"
	}
	return a
}

// Card returns a copy of one card
func (b *Board) Card(id int64) (Card, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.cards[id]
	if !ok {
		return Card{}, false
	}
	return copyCard(c), true
}

// Points returns a copy of a monitor's day series
func (b *Board) Points(id int64) []series.DayPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.cards[id]
	if !ok {
		return nil
	}
	return append([]series.DayPoint(nil), c.points...)
}

// Snapshot returns a deep copy of the board
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Snapshot{
		Cards:     make([]Card, 0, len(b.order)),
		Aggregate: b.aggregate,
		UpdatedAt: b.updatedAt,
		Window:    b.opts.Window,
	}
	if !b.updatedAt.IsZero() {
		s.LastUpdate = b.updatedAt.Format("3:04:05 PM")
	}
	for _, id := range b.order {
		s.Cards = append(s.Cards, copyCard(b.cards[id]))
	}
	return s
}

func copyCard(c *Card) Card {
	out := *c
	out.Chart.Bars = append([]chart.Bar(nil), c.Chart.Bars...)
	out.points = nil
	return out
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned function unregisters it.
func (b *Board) Subscribe(fn func(Snapshot)) func() {
	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.subMu.Unlock()

	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *Board) notify(cause string) {
	b.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := b.Snapshot()
	snap.Cause = cause
	for _, fn := range fns {
		fn(snap)
	}
}
