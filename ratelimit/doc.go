// Package ratelimit provides fixed-window request limiting keyed by
// (identifier, action) pairs.
//
// # Window semantics
//
// Each key owns an independent window. The first request in a window starts
// it; every request increments the counter; requests past MaxRequests are
// rejected until the window resets. Counters are approximate at window
// boundaries, which is acceptable for abuse throttling.
//
// # Implementations
//
//   - [Memory] — in-process, sharded across 64 locks. Single-node only.
//   - [Redis] — INCR + conditional EXPIRE on the first hit. Shared across nodes.
//
// # What this package must NOT do
//
//   - Decide which identifier a request maps to (callers own key selection).
//   - Import go2fa or any sibling package.
package ratelimit
