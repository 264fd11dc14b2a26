package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for credential extraction.
var (
	// ErrNoCredentials indicates the Authorization header is absent.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrMalformedCredentials indicates the Authorization header is not
	// of the form "Bearer <token>".
	ErrMalformedCredentials = errors.New("malformed authorization header")
)

// ProviderError is a non-2xx response from the identity provider.
type ProviderError struct {
	// StatusCode is the HTTP status returned by the provider.
	StatusCode int

	// Message is the provider's error description.
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("identity provider returned status %d: %s", e.StatusCode, e.Message)
}

// IsRejection returns true if the error is a provider rejection of the
// presented credentials or input (4xx), as opposed to a provider or
// transport failure.
func IsRejection(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode >= 400 && pe.StatusCode < 500
	}
	return false
}
