package refresh

import (
	"context"
	"sync"
	"time"
)

// TickerFunc starts a ticker and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// NewTicker is the TickerFunc backed by time.NewTicker
func NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Countdown is the visible seconds-until-next-poll counter.
// At most one ticker drives it at any time.
type Countdown struct {
	mu        sync.Mutex
	interval  int
	left      int
	gen       int
	cancel    func()
	newTicker TickerFunc
	onTick    func(int)
}

// NewCountdown creates a stopped countdown starting at interval seconds.
// onTick, if set, receives every new value.
func NewCountdown(interval time.Duration, newTicker TickerFunc, onTick func(int)) *Countdown {
	secs := int(interval / time.Second)
	if secs < 1 {
		secs = 1
	}
	if newTicker == nil {
		newTicker = NewTicker
	}
	return &Countdown{
		interval:  secs,
		left:      secs,
		newTicker: newTicker,
		onTick:    onTick,
	}
}

// Start begins ticking once per second from the full interval.
// A countdown that is already running is stopped first.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	c.stopLocked()

	c.gen++
	gen := c.gen
	c.left = c.interval

	ctx, cancel := context.WithCancel(ctx)
	ch, stopTicker := c.newTicker(time.Second)
	c.cancel = func() {
		cancel()
		stopTicker()
	}
	left := c.left
	c.mu.Unlock()

	c.emit(left)
	go c.run(ctx, gen, ch)
}

func (c *Countdown) run(ctx context.Context, gen int, ch <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.gen == gen && c.cancel != nil {
				c.cancel()
				c.cancel = nil
			}
			c.mu.Unlock()
			return
		case <-ch:
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			v := c.tickLocked()
			c.mu.Unlock()
			c.emit(v)
		}
	}
}

// Stop halts the ticker. The current value is kept.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

func (c *Countdown) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

// Tick decrements the counter once, wrapping to the interval at zero.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	v := c.tickLocked()
	c.mu.Unlock()
	c.emit(v)
	return v
}

func (c *Countdown) tickLocked() int {
	if c.left > 0 {
		c.left--
	}
	if c.left == 0 {
		c.left = c.interval
	}
	return c.left
}

// Reset puts the counter back to the full interval, e.g. after a poll completes.
func (c *Countdown) Reset() {
	c.mu.Lock()
	c.left = c.interval
	v := c.left
	c.mu.Unlock()
	c.emit(v)
}

// Value returns the seconds left
func (c *Countdown) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.left
}

// Interval returns the full interval in seconds
func (c *Countdown) Interval() int {
	return c.interval
}

// Running reports whether a ticker is active
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Countdown) emit(v int) {
	if c.onTick != nil {
		c.onTick(v)
	}
}
