// Package ratelimit paces outbound requests.
//
// A Limiter grants at most N permits per second, spaced evenly at 1/N
// second intervals rather than in bursts. A single Limiter is shared by
// every worker of a crawl so that the permit stream is global.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPerSecond is used when no valid rate is configured.
const DefaultPerSecond = 1

// Limiter is a smoothed permit stream.
type Limiter struct {
	perSecond int
	limiter   *rate.Limiter
}

// New returns a Limiter granting perSecond permits per second.
// A non-positive perSecond is replaced by DefaultPerSecond.
func New(perSecond int) *Limiter {
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	return &Limiter{
		perSecond: perSecond,
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(perSecond)), 1),
	}
}

// Unlimited returns a Limiter that never blocks.
func Unlimited() *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
}

// PerSecond returns the configured rate. Zero means unlimited.
func (l *Limiter) PerSecond() int {
	return l.perSecond
}

// Interval returns the spacing between permits.
func (l *Limiter) Interval() time.Duration {
	if l.perSecond == 0 {
		return 0
	}
	return time.Second / time.Duration(l.perSecond)
}

// Acquire blocks until the next permit is available.
// It only fails when ctx is done before a permit is granted.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
