package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// evictEvery is the number of checks between sweeps for idle buckets.
const evictEvery = 512

// Limiter applies a token bucket per key and periodically evicts idle entries.
// A nil *Limiter allows everything.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	byKey map[string]*entry
	hits  uint64
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a key-based limiter.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	l := &Limiter{
		limit:   rate.Limit(cfg.RatePerSecond),
		burst:   cfg.Burst,
		idleTTL: idleTTL,
		now:     time.Now,
		byKey:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow consumes one token for key. Blank keys are never limited.
func (l *Limiter) Allow(key string) Result {
	if l == nil {
		return Result{}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{Limit: l.burst, Remaining: l.burst}
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now

	l.hits++
	if l.hits%evictEvery == 0 {
		l.evict(now)
	}

	res := Result{Limit: l.burst}
	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res
	}
	res.Remaining = max(0, int(e.limiter.TokensAt(now)))
	return res
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, v := range l.byKey {
		if v.lastSeen.Before(cutoff) {
			delete(l.byKey, k)
		}
	}
}
