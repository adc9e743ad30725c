package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller's address: first X-Forwarded-For entry,
// then X-Real-IP, then the connection's remote address. Only trust the
// header values when a proxy you control sets them.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IdentityID keys a gate by the authenticated identity. Requests that
// reach it unauthenticated fall back to the client IP.
func IdentityID(r *http.Request) string {
	if id, ok := IdentityFromContext(r.Context()); ok {
		return id
	}
	return ClientIP(r)
}
