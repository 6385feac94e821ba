// Package ratelimit throttles outbound deliveries per target host so that a
// burst of events does not flood a single subscriber.
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per target host.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// New creates a limiter allowing perSecond requests per host with the given
// burst. A burst below one is raised to one. A perSecond of 0 means
// unlimited.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Allow reports whether a request to target may proceed now.
func (l *Limiter) Allow(target string) bool {
	return l.bucket(Key(target)).Allow()
}

// Wait blocks until a request to target may proceed or ctx ends.
func (l *Limiter) Wait(ctx context.Context, target string) error {
	return l.bucket(Key(target)).Wait(ctx)
}

// Reset forgets the bucket for target's host.
func (l *Limiter) Reset(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, Key(target))
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}

// Key returns the bucket key for a target URL: its host, or the raw string
// when it does not parse.
func Key(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}
	return u.Host
}
