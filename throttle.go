package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces calls to rate-sensitive external services
type Throttle interface {
	Wait(ctx context.Context) error
}

// IntervalThrottle allows one call per interval. The first call is immediate.
type IntervalThrottle struct {
	limiter *rate.Limiter
}

// NewIntervalThrottle creates a throttle spacing calls by interval.
// A non-positive interval disables throttling.
func NewIntervalThrottle(interval time.Duration) *IntervalThrottle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &IntervalThrottle{limiter: rate.NewLimiter(limit, 1)}
}

func (t *IntervalThrottle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// noThrottle never waits
type noThrottle struct{}

func (noThrottle) Wait(ctx context.Context) error {
	return ctx.Err()
}
