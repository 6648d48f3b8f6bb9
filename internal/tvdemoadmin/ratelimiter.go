package httpapi

import (
	"sync"
	"time"
)

// SlidingWindowLimiter enforces a maximum number of events within a time window.
type SlidingWindowLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	events []time.Time
}

// NewSlidingWindowLimiter constructs a limiter allowing up to limit events per window.
func NewSlidingWindowLimiter(window time.Duration, limit int, timeSource func() time.Time) *SlidingWindowLimiter {
	if window <= 0 || limit <= 0 {
		return &SlidingWindowLimiter{window: window, limit: limit}
	}
	if timeSource == nil {
		timeSource = time.Now
	}
	return &SlidingWindowLimiter{
		window: window,
		limit:  limit,
		now:    timeSource,
	}
}

// Allow reports whether the caller may proceed under the current rate limits.
func (l *SlidingWindowLimiter) Allow() bool {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.events[:0]
	for _, ts := range l.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.events = kept
	if len(l.events) >= l.limit {
		return false
	}
	l.events = append(l.events, now)
	return true
}

// KeyedLimiter fans a single window/burst policy out across however many
// distinct keys show up at runtime — a viewing client slot, a remote
// address, a match ID — each getting its own independent SlidingWindowLimiter
// created lazily on first use. This is the shared plumbing both the TV demo
// console command surface (per client slot) and the admin HTTP surface (per
// remote address) rate-limit through, so the bookkeeping for "one bucket per
// key, forgotten on demand" exists exactly once.
type KeyedLimiter[K comparable] struct {
	window time.Duration
	burst  int
	now    func() time.Time

	mu       sync.Mutex
	limiters map[K]*SlidingWindowLimiter
}

// NewKeyedLimiter constructs a KeyedLimiter allowing up to burst events per
// window, tracked independently per key.
func NewKeyedLimiter[K comparable](window time.Duration, burst int, timeSource func() time.Time) *KeyedLimiter[K] {
	if timeSource == nil {
		timeSource = time.Now
	}
	return &KeyedLimiter[K]{
		window:   window,
		burst:    burst,
		now:      timeSource,
		limiters: make(map[K]*SlidingWindowLimiter),
	}
}

// Allow reports whether key may proceed right now, recording the attempt if
// so. The key's limiter is created on first use.
func (k *KeyedLimiter[K]) Allow(key K) bool {
	if k == nil {
		return true
	}
	k.mu.Lock()
	limiter, ok := k.limiters[key]
	if !ok {
		limiter = NewSlidingWindowLimiter(k.window, k.burst, k.now)
		k.limiters[key] = limiter
	}
	k.mu.Unlock()
	return limiter.Allow()
}

// Forget drops key's rate-limit state, used when its owning connection or
// session ends.
func (k *KeyedLimiter[K]) Forget(key K) {
	if k == nil {
		return
	}
	k.mu.Lock()
	delete(k.limiters, key)
	k.mu.Unlock()
}
