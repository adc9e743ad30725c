// Package store provides credential store implementations for the
// two-factor engine.
//
//   - [Memory] — map-backed, for tests and single-node deployments.
//   - [Redis] — JSON records with WATCH-based conditional profile updates.
//
// Both honor the go2fa.CredentialStore contract: profile writes are
// version-conditional and lose cleanly with go2fa.ErrVersionConflict.
package store
