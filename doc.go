// Package go2fa provides a two-factor enrollment and verification engine with
// RFC 6238 TOTP codes, single-use backup codes, and fixed-window rate limiting.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// go2fa is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (TwoFactorProfile, SetupResult, MetricsSnapshot, etc.). Persistence is delegated to a
// caller-supplied [CredentialStore]; rate limiting to a [ratelimit.Limiter]. The engine
// never owns storage clients directly.
//
// # What this package must NOT do
//
//   - Expose Redis clients, store internals, or hash encodings in its public API.
//   - Keep plaintext TOTP secrets or backup codes beyond the Setup response.
//   - Import any sub-package that re-imports go2fa (no import cycles).
//
// # Concurrency contract
//
// Enrollment transitions go through version-conditional profile updates: a write only
// lands if the profile version it read is still current. Concurrent Verify calls race
// safely; losers re-read and treat an already-enabled profile as success.
package go2fa
