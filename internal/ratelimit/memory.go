package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps fixed-window counters in a mutex-guarded map.
// Windows roll over lazily on access; CleanupLoop evicts stale entries
// so the map does not grow unbounded.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	now := l.now()
	bucket := policy.Name + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[bucket]
	if !ok || now.After(w.resetAt) {
		l.windows[bucket] = &window{count: 1, resetAt: now.Add(policy.Window)}
		return Decision{Allowed: true}, nil
	}

	if w.count >= policy.Limit {
		return Decision{Allowed: false, RetryAfter: w.resetAt.Sub(now)}, nil
	}

	w.count++
	return Decision{Allowed: true}, nil
}

// CleanupLoop evicts expired windows until stop is closed.
func (l *MemoryLimiter) CleanupLoop(stop <-chan struct{}) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			l.cleanup()
		case <-stop:
			return
		}
	}
}

func (l *MemoryLimiter) cleanup() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
