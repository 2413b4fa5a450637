package store

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window counter keyed by client identifier. A window
// starts at the first request after the previous window ended; counts reset
// when a new window opens.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	seen   map[string]*windowCount
	now    func() time.Time
}

type windowCount struct {
	start time.Time
	count int
}

func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		window: window,
		limit:  limit,
		seen:   make(map[string]*windowCount),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it fits in the current
// window.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	wc, ok := r.seen[key]
	if !ok || now.Sub(wc.start) >= r.window {
		r.seen[key] = &windowCount{start: now, count: 1}
		return true
	}

	if wc.count >= r.limit {
		return false
	}
	wc.count++
	return true
}

// RetryAfter reports how long until key's current window ends. Zero when the
// key has no active window.
func (r *RateLimiter) RetryAfter(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	wc, ok := r.seen[key]
	if !ok {
		return 0
	}
	remaining := r.window - r.now().Sub(wc.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Prune drops windows that ended before now. Called periodically so the map
// does not grow with one entry per client forever.
func (r *RateLimiter) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, wc := range r.seen {
		if now.Sub(wc.start) >= r.window {
			delete(r.seen, key)
		}
	}
}
