package seed

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"statusboard/app/internal/board"
	"statusboard/app/internal/models"
	"statusboard/app/internal/series"
)

// DefaultConcurrency bounds detail requests in flight; the upstream quota is small
const DefaultConcurrency = 4

// Upstream provides monitors and their event history
type Upstream interface {
	FetchMonitors(ctx context.Context) ([]models.MonitorStatus, error)
	FetchMonitorDetail(ctx context.Context, id string) (models.MonitorWithEvents, error)
	Forget(id string)
}

// IncidentLookup returns recorded day values for a monitor between from and to
type IncidentLookup func(monitorID int64, from, to time.Time) (map[string]float64, error)

// Config for creating a Seeder
type Config struct {
	Window      int
	Location    *time.Location
	Incidents   IncidentLookup
	Concurrency int           // defaults to DefaultConcurrency
	Timeout     time.Duration // bounds a seed started from a poll, defaults to 30s
	Now         func() time.Time
}

// Seeder fills the board's history from the upstream and the incident store.
// It also stands between the refresh loop and the board: until a seed has
// succeeded, polled monitors are used to seed instead of being applied.
type Seeder struct {
	upstream  Upstream
	board     *board.Board
	incidents IncidentLookup
	window    int
	loc       *time.Location
	limit     int
	timeout   time.Duration
	now       func() time.Time

	mu     sync.Mutex
	seeded bool
}

// New creates a seeder for b
func New(up Upstream, b *board.Board, cfg Config) *Seeder {
	if cfg.Window < 1 {
		cfg.Window = series.Window90
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Seeder{
		upstream:  up,
		board:     b,
		incidents: cfg.Incidents,
		window:    cfg.Window,
		loc:       cfg.Location,
		limit:     cfg.Concurrency,
		timeout:   cfg.Timeout,
		now:       cfg.Now,
	}
}

// Done reports whether the board has been seeded
func (s *Seeder) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// Seed fetches the monitor list and seeds the board from it
func (s *Seeder) Seed(ctx context.Context) error {
	monitors, err := s.upstream.FetchMonitors(ctx)
	if err != nil {
		return fmt.Errorf("fetching monitors: %w", err)
	}
	return s.seedFrom(ctx, monitors, s.now())
}

// Apply receives successful polls. The first one seeds an unseeded board.
func (s *Seeder) Apply(monitors []models.MonitorStatus, now time.Time) {
	if s.Done() {
		s.board.Apply(monitors, now)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.seedFrom(ctx, monitors, now); err != nil {
		log.Printf("Warning: Failed to seed board: %v", err)
		s.board.Apply(monitors, now)
	}
}

func (s *Seeder) seedFrom(ctx context.Context, monitors []models.MonitorStatus, now time.Time) error {
	now = now.In(s.loc)
	sources := make(map[int64]series.Source, len(monitors))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, m := range monitors {
		g.Go(func() error {
			src, err := s.source(gctx, m.ID, now)
			if err != nil {
				// the card still gets today's value from the live status
				log.Printf("Warning: No history for monitor %d: %v", m.ID, err)
			}
			src.Current = series.LiveValue(m)
			mu.Lock()
			sources[m.ID] = src
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.board.Seed(monitors, sources, now); err != nil {
		return err
	}

	s.mu.Lock()
	s.seeded = true
	s.mu.Unlock()
	log.Printf("Board seeded with %d monitors", len(monitors))
	return nil
}

// source loads incidents and upstream events. Whatever loaded is returned
// alongside an error for the part that failed.
func (s *Seeder) source(ctx context.Context, monitorID int64, now time.Time) (series.Source, error) {
	var src series.Source

	incidents, err := s.incidentsFor(monitorID, now)
	if err != nil {
		return src, err
	}
	src.Incidents = incidents

	ranges, err := s.rangesFor(ctx, monitorID, now)
	if err != nil {
		return src, err
	}
	src.Ranges = ranges
	return src, nil
}

func (s *Seeder) incidentsFor(monitorID int64, now time.Time) (map[string]float64, error) {
	if s.incidents == nil {
		return nil, nil
	}
	today := series.Day(now)
	from := today.AddDate(0, 0, -(s.window - 1))
	incidents, err := s.incidents(monitorID, from, today)
	if err != nil {
		return nil, fmt.Errorf("loading incidents: %w", err)
	}
	return incidents, nil
}

func (s *Seeder) rangesFor(ctx context.Context, monitorID int64, now time.Time) ([]series.Range, error) {
	detail, err := s.upstream.FetchMonitorDetail(ctx, strconv.FormatInt(monitorID, 10))
	if err != nil {
		return nil, fmt.Errorf("fetching detail: %w", err)
	}
	return series.RangesFromEvents(detail.Events, now), nil
}

// Rebuild redraws one card after its incident records changed. The cached
// upstream detail is dropped first so the events are current.
func (s *Seeder) Rebuild(ctx context.Context, monitorID int64) {
	s.upstream.Forget(strconv.FormatInt(monitorID, 10))
	now := s.now().In(s.loc)

	incidents, err := s.incidentsFor(monitorID, now)
	if err != nil {
		log.Printf("Failed to rebuild monitor %d: %v", monitorID, err)
		return
	}
	src := series.Source{Incidents: incidents}

	if src.Ranges, err = s.rangesFor(ctx, monitorID, now); err != nil {
		log.Printf("Warning: Rebuilding monitor %d without history: %v", monitorID, err)
	}

	if ok, err := s.board.Rebuild(monitorID, src, now); err != nil {
		log.Printf("Failed to rebuild monitor %d: %v", monitorID, err)
	} else if !ok {
		log.Printf("Incident saved for monitor %d which has no card", monitorID)
	}
}
