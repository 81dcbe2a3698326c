// Package ratelimit implements a fixed-window in-memory request limiter.
// It is best effort: windows do not survive a restart and counters are
// per process. Expired windows are swept inline on each call so memory
// stays bounded by the number of active keys.
package ratelimit

import (
	"sync"
	"time"
)

// Verdict reports one Allow call. RetryAfter is zero when allowed.
type Verdict struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in fixed windows. The zero value is
// not usable; construct with New.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]window
	now     func() time.Time
}

func New(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Limiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]window),
		now:     time.Now,
	}
}

// Allow counts one request against key's current window.
func (l *Limiter) Allow(key string) Verdict {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(l.period)}
	}
	w.count++
	l.windows[key] = w

	if w.count > l.limit {
		return Verdict{RetryAfter: w.resetAt.Sub(now)}
	}
	return Verdict{Allowed: true, Remaining: l.limit - w.count}
}

func (l *Limiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
