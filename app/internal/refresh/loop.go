// Package refresh runs the periodic poll of monitor status and the visible
// countdown to the next poll.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"statusboard/app/internal/models"
)

// DefaultInterval is the time between two polls.
const DefaultInterval = 60 * time.Second

// Fetcher retrieves the current status of every monitor
type Fetcher interface {
	FetchMonitors(ctx context.Context) ([]models.MonitorStatus, error)
}

// Applier receives successful poll results
type Applier interface {
	Apply(monitors []models.MonitorStatus, now time.Time)
}

// Config for creating a Loop
type Config struct {
	Interval  time.Duration
	NewTicker TickerFunc       // defaults to NewTicker
	Now       func() time.Time // defaults to time.Now
	OnTick    func(int)        // receives every countdown value
	OnError   func(error)      // called after each failed poll
}

// Loop polls on a fixed interval and patches the board on success.
// A failed poll is logged and leaves the board untouched.
type Loop struct {
	fetcher   Fetcher
	board     Applier
	interval  time.Duration
	newTicker TickerFunc
	now       func() time.Time
	countdown *Countdown
	onError   func(error)

	mu       sync.Mutex
	failures int
	lastErr  error
	lastOK   time.Time
}

// NewLoop creates a loop; call Run to start it.
func NewLoop(f Fetcher, b Applier, cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTicker
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{
		fetcher:   f,
		board:     b,
		interval:  cfg.Interval,
		newTicker: cfg.NewTicker,
		now:       cfg.Now,
		countdown: NewCountdown(cfg.Interval, cfg.NewTicker, cfg.OnTick),
		onError:   cfg.OnError,
	}
}

// Countdown returns the loop's countdown
func (l *Loop) Countdown() *Countdown {
	return l.countdown
}

// Run polls every interval until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.countdown.Start(ctx)
	defer l.countdown.Stop()

	ch, stop := l.newTicker(l.interval)
	defer stop()

	log.Printf("Refresh loop started with %v interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			_ = l.Poll(ctx)
		}
	}
}

// Poll fetches once. On success the board is patched and the countdown reset.
func (l *Loop) Poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.interval)
	defer cancel()

	monitors, err := l.fetcher.FetchMonitors(ctx)
	if err != nil {
		l.mu.Lock()
		l.failures++
		l.lastErr = err
		n := l.failures
		l.mu.Unlock()

		log.Printf("Failed to fetch monitor data: %v (consecutive failures: %d)", err, n)
		sentry.CaptureException(fmt.Errorf("polling monitors: %w", err))
		if l.onError != nil {
			l.onError(err)
		}
		return err
	}

	now := l.now()
	l.board.Apply(monitors, now)
	l.countdown.Reset()

	l.mu.Lock()
	l.failures = 0
	l.lastErr = nil
	l.lastOK = now
	l.mu.Unlock()
	return nil
}

// Status is the health of the loop
type Status struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastSuccess         time.Time `json:"last_success"`
}

// Status reports recent poll outcomes
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Status{ConsecutiveFailures: l.failures, LastSuccess: l.lastOK}
	if l.lastErr != nil {
		s.LastError = l.lastErr.Error()
	}
	return s
}
