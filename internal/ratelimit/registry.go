package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskgate/taskgate/internal/ratelimit/store"
)

// sweepInterval is how often lapsed in-memory buckets are removed.
const sweepInterval = 5 * time.Minute

// Registry owns one fixed-window limiter per tier and dispatches checks
// by tier name. It is constructed explicitly and injected, so tests can
// build their own instance and a distributed store can be swapped in
// without touching callers.
type Registry struct {
	limiters map[string]*FixedWindowLimiter
	tiers    map[string]Tier
	logger   *zap.Logger
	sweep    *time.Ticker
	done     chan struct{}
	once     sync.Once
}

// NewRegistry creates a registry with one limiter per tier. When s is
// nil, counters are per-process.
func NewRegistry(s store.Store, logger *zap.Logger, tiers ...Tier) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}

	r := &Registry{
		limiters: make(map[string]*FixedWindowLimiter, len(tiers)),
		tiers:    make(map[string]Tier, len(tiers)),
		logger:   logger,
		sweep:    time.NewTicker(sweepInterval),
		done:     make(chan struct{}),
	}

	for _, tier := range tiers {
		r.tiers[tier.Name] = tier
		r.limiters[tier.Name] = NewFixedWindowLimiter(s, tier.Requests, tier.Window, logger)
	}

	go r.startSweep()

	return r
}

// Check runs the rate limit check for the caller key under the named
// tier. Unknown tiers are an error, not a silent allow.
func (r *Registry) Check(ctx context.Context, callerKey, tierName string) (*Result, error) {
	limiter, ok := r.limiters[tierName]
	if !ok {
		return nil, fmt.Errorf("unknown rate limit tier: %s", tierName)
	}

	return limiter.Allow(ctx, tierName+":"+callerKey)
}

// Tier returns the configuration for the named tier.
func (r *Registry) Tier(name string) (Tier, bool) {
	tier, ok := r.tiers[name]
	return tier, ok
}

// Reset clears the bucket for the caller key under the named tier.
func (r *Registry) Reset(ctx context.Context, callerKey, tierName string) error {
	limiter, ok := r.limiters[tierName]
	if !ok {
		return fmt.Errorf("unknown rate limit tier: %s", tierName)
	}
	return limiter.Reset(ctx, tierName+":"+callerKey)
}

// startSweep periodically removes lapsed in-memory buckets.
func (r *Registry) startSweep() {
	for {
		select {
		case <-r.sweep.C:
			for _, limiter := range r.limiters {
				limiter.Cleanup()
			}
		case <-r.done:
			return
		}
	}
}

// Close stops the background sweep.
func (r *Registry) Close() {
	r.once.Do(func() {
		r.sweep.Stop()
		close(r.done)
	})
}
