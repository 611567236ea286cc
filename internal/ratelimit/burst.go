package ratelimit

import (
	"time"

	"github.com/ratersapp/siws/internal/conf"
	"golang.org/x/time/rate"
)

// BurstLimiter wraps the golang.org/x/time/rate package.
type BurstLimiter struct {
	rl *rate.Limiter
}

// NewBurstLimiter returns a rate limiter configured using the given conf.Rate.
//
// The token bucket holds r.Events tokens and refills at r.Events per
// r.OverTime. For example:
//   - 10/1m  allows 10 events at once, then one every 6 seconds.
//   - 100    allows 100 events at once, then one every 36 seconds.
func NewBurstLimiter(r conf.Rate) *BurstLimiter {
	return &BurstLimiter{
		rl: rate.NewLimiter(rate.Limit(r.EventsPerSecond()), r.Burst()),
	}
}

// Allow implements Limiter by calling AllowAt with the current time.
func (l *BurstLimiter) Allow() bool {
	return l.AllowAt(time.Now())
}

// AllowAt implements Limiter by calling the underlying x/time/rate.Limiter
// with the given time.
func (l *BurstLimiter) AllowAt(at time.Time) bool {
	return l.rl.AllowN(at, 1)
}
