package common

import (
	"net"
	"net/http"
	"strings"
)

// SessionHeader carries the storefront session identifier that scopes
// the durable cart.
const SessionHeader = "X-Session-ID"

// ErrMissingSession rejects requests that arrive without the session
// header; nothing cart-scoped can be answered for them.
var ErrMissingSession = NewAppError(http.StatusBadRequest, "missing_session", "X-Session-ID header is required")

// SessionID extracts the session identifier from the request.
func SessionID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

// ClientIP attempts to determine the real client IP address from the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		parts := strings.Split(ip, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
		return strings.TrimSpace(ip)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
