package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/example/collab-template-demo/domain/ratelimit"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window limiter kept in process memory.
type MemoryLimiter struct {
	config  ratelimit.Config
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryLimiter creates a fixed-window limiter.
func NewMemoryLimiter(config ratelimit.Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow counts one request for key in its current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*ratelimit.Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.config.WindowSize)}
		l.windows[key] = w
	}

	if w.count >= l.config.RequestsPerWindow {
		return &ratelimit.Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    w.resetAt,
			RetryAfter: w.resetAt.Sub(now),
		}, nil
	}

	w.count++
	return &ratelimit.Result{
		Allowed:   true,
		Remaining: l.config.RequestsPerWindow - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

// Purge drops windows that have expired and returns how many were removed.
func (l *MemoryLimiter) Purge() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Run purges expired windows every interval until ctx is cancelled.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Purge()
		}
	}
}

// Size returns the number of tracked keys.
func (l *MemoryLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Close is a no-op.
func (l *MemoryLimiter) Close() error {
	return nil
}
