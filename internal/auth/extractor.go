package auth

import (
	"net/http"
	"strings"
)

// ExtractBearer extracts the bearer token from the Authorization
// header. Any shape other than "Bearer <token>" is rejected here,
// before any remote call is made.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedCredentials
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformedCredentials
	}

	return token, nil
}
