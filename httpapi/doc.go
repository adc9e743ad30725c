// Package httpapi wires the two-factor engine into an http.Handler: login
// plus the enrollment management endpoints, each behind session auth and a
// fixed-window rate limit gate.
//
// # Routes
//
//	POST /login              credential + optional second-factor login
//	POST /2fa/setup          provision secret, QR code, backup codes
//	POST /2fa/verify         confirm enrollment with a TOTP code
//	POST /2fa/disable        turn off two-factor (password re-check)
//	GET  /2fa/status         enrollment state summary
//	POST /2fa/backup-codes   regenerate backup codes (TOTP re-check)
//
// Login is limited per client IP; management endpoints per identity.
//
// # What this package must NOT do
//
//   - Contain enrollment or throttling logic (the engine owns both).
//   - Reveal which credential check failed in error bodies.
package httpapi
