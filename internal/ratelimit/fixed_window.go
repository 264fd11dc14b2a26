package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskgate/taskgate/internal/ratelimit/store"
)

// FixedWindowLimiter implements the fixed window rate limiting
// algorithm. Time is divided into fixed windows; requests are counted
// within each window and the counter restarts when a new window begins.
type FixedWindowLimiter struct {
	store  store.Store
	limit  int
	window time.Duration
	logger *zap.Logger

	// In-memory state used when no distributed store is configured.
	counters sync.Map
}

// windowCounter is the per-key bucket for the in-memory path. The
// window is anchored at the bucket's first request, not the wall clock,
// so a caller cannot double its budget by straddling a clock-aligned
// boundary. The mutex makes the check-and-increment atomic with respect
// to concurrent requests on the same key.
type windowCounter struct {
	count       int
	windowStart time.Time
	mu          sync.Mutex
}

// NewFixedWindowLimiter creates a new fixed window rate limiter. When s
// is nil, counters are kept in process memory.
func NewFixedWindowLimiter(s store.Store, limit int, window time.Duration, logger *zap.Logger) *FixedWindowLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FixedWindowLimiter{
		store:  s,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow implements Limiter.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	if l.store == nil {
		return l.allowLocal(key)
	}
	return l.allowDistributed(ctx, key)
}

// getWindowStart returns the start of the clock-aligned window
// containing t. Only the store-backed path uses clock alignment; it
// gives every instance the same key for the current window without
// coordination.
func (l *FixedWindowLimiter) getWindowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

// allowLocal performs rate limiting against in-memory counters. The
// bucket is created lazily and its window starts at the first request.
func (l *FixedWindowLimiter) allowLocal(key string) (*Result, error) {
	now := time.Now()

	value, _ := l.counters.LoadOrStore(key, &windowCounter{
		windowStart: now,
	})
	wc := value.(*windowCounter)

	wc.mu.Lock()
	defer wc.mu.Unlock()

	// A lapsed window restarts the counter, anchored at this request.
	if !now.Before(wc.windowStart.Add(l.window)) {
		wc.count = 0
		wc.windowStart = now
	}

	allowed := wc.count+1 <= l.limit
	if allowed {
		wc.count++
	}

	return l.buildResult(allowed, wc.count, wc.windowStart, now), nil
}

// allowDistributed performs rate limiting against the shared store.
func (l *FixedWindowLimiter) allowDistributed(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	windowStart := l.getWindowStart(now)

	windowKey := fmt.Sprintf("%s:fw:%d", key, windowStart.UnixNano())

	// The increment itself decides. A separate read-then-write would let
	// two concurrent requests both observe "under limit". Window expiry
	// gets a one-second buffer for clock skew.
	count, err := l.store.IncrementWithExpiry(ctx, windowKey, 1, l.window+time.Second)
	if err != nil {
		return nil, err
	}

	allowed := count <= int64(l.limit)
	capped := int(count)
	if capped > l.limit {
		capped = l.limit
	}

	return l.buildResult(allowed, capped, windowStart, now), nil
}

// buildResult assembles a Result from the counter state.
func (l *FixedWindowLimiter) buildResult(allowed bool, count int, windowStart, now time.Time) *Result {
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	l.counters.Delete(key)

	if l.store != nil {
		now := time.Now()
		windowStart := l.getWindowStart(now)
		windowKey := fmt.Sprintf("%s:fw:%d", key, windowStart.UnixNano())
		if err := l.store.Delete(ctx, windowKey); err != nil {
			return fmt.Errorf("failed to delete window counter: %w", err)
		}
	}

	return nil
}

// Cleanup removes in-memory counters from lapsed windows, bounding the
// bucket table between sweeps.
func (l *FixedWindowLimiter) Cleanup() {
	now := time.Now()

	l.counters.Range(func(key, value interface{}) bool {
		wc := value.(*windowCounter)
		wc.mu.Lock()
		if !now.Before(wc.windowStart.Add(l.window)) {
			l.counters.Delete(key)
		}
		wc.mu.Unlock()
		return true
	})
}
