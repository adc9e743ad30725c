package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/drazzan/go2fa"
)

// TokenParser resolves a bearer token to an identity ID.
type TokenParser interface {
	Parse(token string) (string, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity ID injected by [Auth].
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityContextKey{}).(string)
	return id, ok && id != ""
}

// WithIdentity injects an identity ID directly. Intended for tests and
// internal handlers that bypass token auth.
func WithIdentity(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identityID)
}

// Auth rejects requests without a valid bearer token and injects the
// resolved identity ID, client IP, and user agent into the context.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				unauthorized(w)
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			identityID, err := parser.Parse(raw)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), identityID)
			ctx = go2fa.WithClientIP(ctx, ClientIP(r))
			if ua := r.UserAgent(); ua != "" {
				ctx = go2fa.WithUserAgent(ctx, ua)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	raw := value[len(bearer):]
	if raw == "" {
		return "", false
	}

	return raw, true
}
