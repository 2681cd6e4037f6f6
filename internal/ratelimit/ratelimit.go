// Package ratelimit throttles outbound fetches to a requests-per-second ceiling.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a global minimum interval between acquisitions.
// One Limiter is shared by every fetch of a crawl session (sitemap, robots.txt
// and page requests) so the ceiling is global rather than per domain.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration

	mu        sync.Mutex
	acquired  int
	totalWait time.Duration
}

// Info contains information about limiter usage.
type Info struct {
	MaxRate   float64
	Interval  time.Duration
	Acquired  int
	TotalWait time.Duration
}

// NewLimiter creates a limiter allowing maxRate acquisitions per second.
// A maxRate <= 0 disables throttling.
func NewLimiter(maxRate float64) *Limiter {
	if maxRate <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	// Burst of one: the first acquisition is immediate, each later one waits
	// until 1/maxRate has elapsed since the previous release.
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Limit(maxRate), 1),
		interval: time.Duration(float64(time.Second) / maxRate),
	}
}

// Acquire blocks until the next request may be sent.
// The only error is the context's, when it is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.acquired++
	l.totalWait += time.Since(start)
	l.mu.Unlock()
	return nil
}

// Interval returns the minimum spacing between acquisitions (zero when unlimited).
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Status returns usage counters for logging.
func (l *Limiter) Status() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Info{
		MaxRate:   float64(l.limiter.Limit()),
		Interval:  l.interval,
		Acquired:  l.acquired,
		TotalWait: l.totalWait,
	}
}
