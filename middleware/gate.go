package middleware

import (
	"net/http"
	"strconv"

	"github.com/drazzan/go2fa/ratelimit"
)

// IdentifierFunc picks the rate limit identifier for a request.
type IdentifierFunc func(*http.Request) string

// Gate counts every request against the (identifier, action) budget before
// the handler runs. Rejected requests get 429 with Retry-After; every
// response carries X-RateLimit-Limit, -Remaining, and -Reset headers.
// Limiter backend failures fail closed with 503.
func Gate(limiter ratelimit.Limiter, action string, cfg ratelimit.Config, identify IdentifierFunc) func(http.Handler) http.Handler {
	if identify == nil {
		identify = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := ratelimit.Key{Identifier: identify(r), Action: action}
			res, err := limiter.Allow(r.Context(), key, cfg)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"rate limiter unavailable"}`))
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
