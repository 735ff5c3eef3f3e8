package ratelimiter

import (
	"fmt"
	"math"
	"time"
)

// Config defines the per-key token bucket.
type Config struct {
	RatePerSecond float64       `env:"RATE_PER_SEC" envDefault:"5"` // Tokens added per second
	Burst         int           `env:"BURST" envDefault:"10"`       // Maximum tokens the bucket can hold
	IdleTTL       time.Duration `env:"IDLE_TTL" envDefault:"10m"`   // Idle buckets older than this are evicted
}

func (c Config) validate() error {
	if c.RatePerSecond <= 0 || math.IsInf(c.RatePerSecond, 0) || math.IsNaN(c.RatePerSecond) {
		return fmt.Errorf("%w: rate must be positive, got %v", ErrInvalidConfig, c.RatePerSecond)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("%w: burst must be positive, got %d", ErrInvalidConfig, c.Burst)
	}
	return nil
}

// Result contains the outcome of a rate limit check.
type Result struct {
	Limit      int           // Bucket capacity
	Remaining  int           // Whole tokens left after this check
	RetryAfter time.Duration // Wait until the next token, zero when allowed
}

// Allowed reports whether the request may proceed.
func (r Result) Allowed() bool {
	return r.RetryAfter == 0
}
