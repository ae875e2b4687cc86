package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// idle buckets are dropped after this long
const idleAfter = 10 * time.Minute

// Limiter gives every key a budget of requests that refills continuously.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	perMin  float64
	burst   float64
	message string
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// Config for creating a Limiter
type Config struct {
	PerMinute int    // refill rate
	Burst     int    // budget of a fresh key, defaults to PerMinute
	Message   string // body of the 429 answer
}

// New creates a limiter and starts its sweeper; call Stop to end it.
func New(cfg Config) *Limiter {
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = cfg.PerMinute
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		perMin:  float64(cfg.PerMinute),
		burst:   float64(cfg.Burst),
		message: cfg.Message,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(5 * time.Minute)
	return l
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.mu.Lock()
			cutoff := l.now().Add(-idleAfter)
			for key, b := range l.buckets {
				if b.seen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow spends one request for key
func (l *Limiter) Allow(key string) bool {
	ok, _, _ := l.take(key)
	return ok
}

// take spends one token. It returns what is left and, when denied, how long
// until the next token.
func (l *Limiter) take(key string) (ok bool, remaining int, wait time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.seen).Minutes()*l.perMin)
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	missing := 1 - b.tokens
	return false, 0, time.Duration(missing / l.perMin * float64(time.Minute))
}

// Middleware answers 429 with Retry-After once key(r) has spent its budget.
// Every answer carries X-RateLimit-Limit and X-RateLimit-Remaining.
func (l *Limiter) Middleware(key func(*http.Request) string) func(http.Handler) http.Handler {
	limit := strconv.Itoa(int(l.burst))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, wait := l.take(key(r))
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{"success": false, "error": l.message})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	// AdminLimiter allows 20 admin calls per minute per client
	AdminLimiter = New(Config{PerMinute: 20, Message: "Too many admin requests. Please try again later."})

	// APILimiter allows 240 public API calls per minute per client
	APILimiter = New(Config{PerMinute: 240, Message: "Too many requests. Please slow down."})
)
