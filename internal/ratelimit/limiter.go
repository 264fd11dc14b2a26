// Package ratelimit provides tiered fixed-window rate limiting for the
// task service. Each route class maps to a named tier; counters are kept
// per (caller key, tier) and reset when the window elapses.
package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	Allow(ctx context.Context, key string) (*Result, error)

	// Reset resets the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

// Result represents the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests remaining in the current window.
	Remaining int

	// ResetAfter is the duration until the current window ends.
	ResetAfter time.Duration

	// RetryAfter is the duration to wait before retrying (when denied).
	RetryAfter time.Duration
}

// Tier is a named rate limit configuration applied to a class of routes.
type Tier struct {
	// Name identifies the tier and prefixes bucket keys.
	Name string

	// Requests is the maximum number of requests allowed per window.
	Requests int

	// Window is the length of the counting window.
	Window time.Duration
}

// Route tiers. Budgets follow the service's abuse posture: credential
// issuance and account creation are far tighter than general reads.
var (
	// TierGeneral covers ordinary read/write traffic.
	TierGeneral = Tier{Name: "general", Requests: 100, Window: 15 * time.Minute}

	// TierLogin covers credential issuance attempts.
	TierLogin = Tier{Name: "login", Requests: 5, Window: 15 * time.Minute}

	// TierSignup covers account creation.
	TierSignup = Tier{Name: "signup", Requests: 3, Window: time.Hour}

	// TierPasswordReset covers password reset requests.
	TierPasswordReset = Tier{Name: "password_reset", Requests: 3, Window: time.Hour}

	// TierTaskCreate covers resource creation.
	TierTaskCreate = Tier{Name: "task_create", Requests: 30, Window: time.Hour}
)

// DefaultTiers returns all route tiers used by the service.
func DefaultTiers() []Tier {
	return []Tier{TierGeneral, TierLogin, TierSignup, TierPasswordReset, TierTaskCreate}
}
