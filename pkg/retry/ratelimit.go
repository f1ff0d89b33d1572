package retry

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket that starts full.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows perSecond requests per second with a burst of the
// same size (at least one).
func NewRateLimiter(perSecond float64) *RateLimiter {
	burst := int(math.Max(1, math.Floor(perSecond)))
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// NewIntervalLimiter allows one request immediately and then one per interval.
// A non-positive interval disables limiting.
func NewIntervalLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.limiter.Wait(ctx)
}
