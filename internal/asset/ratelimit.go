package asset

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out remote basemap fetches. A nil *RateLimiter
// never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter that allows rps fetches per second with
// a burst of one. A non-positive rps disables limiting and returns nil.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until another fetch is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}
