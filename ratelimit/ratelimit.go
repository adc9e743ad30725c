package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures so callers can fail closed or open
// by policy instead of inspecting driver errors.
var ErrUnavailable = errors.New("rate limit backend unavailable")

// Key identifies one counter: who is being limited and for what.
type Key struct {
	Identifier string
	Action     string
}

func (k Key) String() string {
	return k.Action + ":" + k.Identifier
}

// Config is a fixed-window budget.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Validate rejects budgets that would never admit or never reject.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return errors.New("MaxRequests must be positive")
	}
	if c.Window <= 0 {
		return errors.New("Window must be positive")
	}
	return nil
}

// Preset budgets for common endpoint classes.
var (
	// Strict suits sensitive mutations such as two-factor management.
	Strict = Config{MaxRequests: 10, Window: time.Minute}
	// Login suits credential submission endpoints.
	Login = Config{MaxRequests: 5, Window: 15 * time.Minute}
	// Upload suits expensive content endpoints.
	Upload = Config{MaxRequests: 10, Window: time.Hour}
)

// Result reports the outcome of one counted request.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter counts a request against a key's budget. Allow always counts the
// request, allowed or not; Reset clears the key's window early, typically
// after a successful authentication.
type Limiter interface {
	Allow(ctx context.Context, key Key, cfg Config) (Result, error)
	Reset(ctx context.Context, key Key) error
}
