// Package auth extracts bearer credentials and delegates their
// verification to the remote identity provider. Tokens are opaque to
// this layer: they are never decoded, cached, or validated locally.
package auth

import "time"

// Identity represents a verified identity as reported by the identity
// provider. It is read-only from this service's perspective.
type Identity struct {
	// ID is the provider-assigned opaque identifier.
	ID string `json:"id"`

	// Email is the unique address registered with the provider.
	Email string `json:"email"`

	// Name is the optional display name.
	Name string `json:"name,omitempty"`

	// VerifiedAt is when the email was verified; nil means unverified.
	VerifiedAt *time.Time `json:"verified_at"`

	// CreatedAt is when the identity was created.
	CreatedAt time.Time `json:"created_at"`
}

// Verified returns true if the identity's email has been verified.
func (i *Identity) Verified() bool {
	return i.VerifiedAt != nil
}

// Session is a credential pair issued by the identity provider. This
// layer holds it only for the duration of one request or refresh call.
type Session struct {
	// AccessToken is the short-lived bearer token, opaque to this layer.
	AccessToken string `json:"access_token"`

	// RefreshToken is used only to request a new session.
	RefreshToken string `json:"refresh_token"`

	// ExpiresIn is the access token lifetime hint in seconds.
	ExpiresIn int `json:"expires_in"`

	// TokenType is the credential scheme, always "bearer".
	TokenType string `json:"token_type"`
}
