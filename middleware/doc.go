// Package middleware exposes the HTTP adapters in front of the two-factor
// engine: session authentication and per-endpoint rate limit gates.
//
// # Components
//
//   - [Auth] — reads the Authorization bearer token, resolves the identity,
//     and injects it into the request context.
//   - [Gate] — counts the request against a fixed-window budget and answers
//     429 with Retry-After and X-RateLimit-* headers when exhausted.
//   - [ClientIP] / [IdentityID] — identifier selectors for Gate keys.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine and limiter calls.
// It makes no authentication or throttling decisions of its own.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to a TokenParser).
//   - Talk to Redis or stores (the limiter owns I/O).
package middleware
