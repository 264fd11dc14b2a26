package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskgate/taskgate/internal/auth"
	"github.com/taskgate/taskgate/internal/observability"
	"github.com/taskgate/taskgate/internal/ratelimit"
)

// AuthMode controls how the auth stage treats credentials.
type AuthMode int

const (
	// AuthRequired rejects requests without a verified identity.
	AuthRequired AuthMode = iota

	// AuthOptional makes the same verification attempt but swallows
	// extraction failures and provider rejections, continuing without an
	// attached identity. Provider outages still surface.
	AuthOptional

	// AuthRequireVerified rejects requests whose identity has not
	// completed verification, on top of AuthRequired.
	AuthRequireVerified
)

// RateLimitStage checks the caller's budget under one tier before any
// other work happens. Limiter errors allow the request through; the
// store being down must not take reads down with it.
type RateLimitStage struct {
	registry *ratelimit.Registry
	tier     string
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRateLimitStage creates a rate limit stage for the named tier.
func NewRateLimitStage(registry *ratelimit.Registry, tier string, metrics *observability.Metrics, logger *zap.Logger) *RateLimitStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitStage{
		registry: registry,
		tier:     tier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Name implements Stage.
func (s *RateLimitStage) Name() string {
	return "ratelimit:" + s.tier
}

// Run implements Stage.
func (s *RateLimitStage) Run(ctx context.Context, ex *Exchange) Outcome {
	result, err := s.registry.Check(ctx, ex.CallerKey, s.tier)
	if err != nil {
		s.logger.Warn("rate limit check failed, allowing request",
			zap.String("tier", s.tier),
			zap.Error(err),
		)
		return Continue()
	}

	if !result.Allowed {
		if s.metrics != nil {
			s.metrics.RecordRateLimitRejection(s.tier)
		}
		s.logger.Info("rate limit exceeded",
			zap.String("tier", s.tier),
			zap.String("caller", ex.CallerKey),
			zap.Duration("retry_after", result.RetryAfter),
		)
		return Fail(RateLimited(result.RetryAfter))
	}

	return Continue()
}

// AuthStage extracts and verifies the bearer token against the identity
// provider. On success the verified identity is attached to the
// exchange; handlers never see an unverified token.
type AuthStage struct {
	provider auth.Provider
	mode     AuthMode
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthStage creates an auth stage.
func NewAuthStage(provider auth.Provider, mode AuthMode, metrics *observability.Metrics, logger *zap.Logger) *AuthStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthStage{
		provider: provider,
		mode:     mode,
		metrics:  metrics,
		logger:   logger,
	}
}

// Name implements Stage.
func (s *AuthStage) Name() string {
	return "auth"
}

// Run implements Stage.
func (s *AuthStage) Run(ctx context.Context, ex *Exchange) Outcome {
	token, err := auth.ExtractBearer(ex.Request)
	if err != nil {
		if s.mode == AuthOptional {
			return Continue()
		}
		return Fail(s.reject("missing or malformed credentials", err))
	}

	identity, err := s.provider.Verify(ctx, token)
	if err != nil {
		if auth.IsRejection(err) {
			if s.mode == AuthOptional {
				return Continue()
			}
			return Fail(s.reject("invalid or expired token", err))
		}
		if s.metrics != nil {
			s.metrics.RecordUpstreamError("identity-provider")
		}
		s.logger.Error("identity provider verification failed", zap.Error(err))
		return Fail(Upstream("identity verification unavailable", err))
	}

	if s.mode == AuthRequireVerified && !identity.Verified() {
		return Fail(Forbidden("email verification required"))
	}

	ex.Token = token
	ex.Identity = identity
	return Continue()
}

// reject records the rejection and builds the auth failure.
func (s *AuthStage) reject(message string, err error) *Failure {
	if s.metrics != nil {
		s.metrics.RecordAuthRejection(message)
	}
	return AuthFailed(message, err)
}
