package ratelimit

import (
	"net/http"
	"strings"
)

// KeyFunc is a function that extracts a rate limit caller key from an
// HTTP request. The registry prefixes the key with the tier name, so a
// KeyFunc only identifies the caller.
type KeyFunc func(r *http.Request) string

// IPKeyFunc uses the client IP as the caller key. This is the best
// available caller identifier for unauthenticated traffic.
func IPKeyFunc(r *http.Request) string {
	return GetClientIP(r)
}

// GetClientIP extracts the client IP from the request, preferring
// proxy-supplied headers over the transport address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	// Remove brackets from IPv6 addresses.
	ip = strings.TrimPrefix(ip, "[")
	ip = strings.TrimSuffix(ip, "]")

	return ip
}
