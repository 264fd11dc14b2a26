// Package pipeline composes the per-route request stages (rate limit,
// auth gate, validation) into an explicit ordered chain with a
// classified failure taxonomy and a uniform response envelope.
package pipeline

import (
	"net/http"
	"time"

	"github.com/taskgate/taskgate/internal/validation"
)

// Kind classifies a pipeline failure.
type Kind string

// Failure kinds.
const (
	// KindValidation is malformed, missing, or out-of-range input.
	KindValidation Kind = "validation"

	// KindAuth is a missing, malformed, or rejected credential.
	KindAuth Kind = "auth"

	// KindForbidden is an authenticated but not permitted request.
	KindForbidden Kind = "forbidden"

	// KindNotFound is a resource id with no corresponding record.
	KindNotFound Kind = "not_found"

	// KindRateLimit is an exhausted tier budget.
	KindRateLimit Kind = "rate_limit"

	// KindUpstream is an unclassified remote failure.
	KindUpstream Kind = "upstream"
)

// Failure is a classified pipeline outcome. It is the only error shape
// that crosses stage boundaries; the HTTP layer converts it to a
// response exactly once.
type Failure struct {
	// Kind classifies the failure.
	Kind Kind

	// Message is a stable, human-readable description.
	Message string

	// Fields carries the ordered field errors for validation failures.
	Fields validation.ErrorList

	// RetryAfter is how long the caller should wait, for rate limit
	// failures.
	RetryAfter time.Duration

	// Err is the underlying cause, surfaced only in development mode.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Status maps the failure kind to its HTTP status code.
func (f *Failure) Status() int {
	switch f.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ValidationFailed builds a validation failure from collected field
// errors.
func ValidationFailed(errs validation.ErrorList) *Failure {
	message := "Validation failed"
	if len(errs) == 1 {
		message = errs[0].Message
	}
	return &Failure{
		Kind:    KindValidation,
		Message: message,
		Fields:  errs,
	}
}

// AuthFailed builds an auth failure.
func AuthFailed(message string, err error) *Failure {
	return &Failure{Kind: KindAuth, Message: message, Err: err}
}

// Forbidden builds a forbidden failure.
func Forbidden(message string) *Failure {
	return &Failure{Kind: KindForbidden, Message: message}
}

// NotFound builds a not-found failure.
func NotFound(message string) *Failure {
	return &Failure{Kind: KindNotFound, Message: message}
}

// RateLimited builds a rate limit failure carrying the remaining window
// time.
func RateLimited(retryAfter time.Duration) *Failure {
	return &Failure{
		Kind:       KindRateLimit,
		Message:    "Too many requests, please try again later",
		RetryAfter: retryAfter,
	}
}

// Upstream builds an unclassified remote failure.
func Upstream(message string, err error) *Failure {
	return &Failure{Kind: KindUpstream, Message: message, Err: err}
}
