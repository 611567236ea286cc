package ratelimit

import (
	"time"

	"github.com/ratersapp/siws/internal/conf"
)

// Limiter is the interface implemented by rate limiters.
//
// Implementations of Limiter must be safe for concurrent use.
type Limiter interface {

	// Allow should return true if an event should be allowed at the time
	// which it was called, or false otherwise.
	Allow() bool

	// AllowAt should return true if an event should be allowed at the given
	// time, or false otherwise.
	AllowAt(at time.Time) bool
}

// New returns a Limiter for r, or nil when r allows no events. A nil Limiter
// means the limit is disabled.
func New(r conf.Rate) Limiter {
	if r.Events <= 0 {
		return nil
	}
	return NewBurstLimiter(r)
}
