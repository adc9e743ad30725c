package go2fa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drazzan/go2fa/ratelimit"
)

// Engine orchestrates two-factor enrollment, verification, and login.
// Construct through [Builder.Build]; the zero value is not usable.
type Engine struct {
	config    Config
	store     CredentialStore
	passwords PasswordVerifier
	limiter   ratelimit.Limiter
	audit     *auditDispatcher
	metrics   *Metrics
	totp      *totpManager
	now       func() time.Time
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot exposes engine counters for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// MetricValue reads one counter.
func (e *Engine) MetricValue(id MetricID) uint64 {
	if e == nil {
		return 0
	}
	return e.metrics.Value(id)
}

// AuditDropped reports events discarded under dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// errTransitionDone signals that a mutate callback found its target state
// already applied by a concurrent writer. mutateProfile maps it to success.
var errTransitionDone = errors.New("transition already applied")

// mutateProfile runs a read-mutate-conditional-write cycle against the
// credential store, retrying a bounded number of times when the
// version-conditional write loses to a concurrent update.
func (e *Engine) mutateProfile(ctx context.Context, identityID string, mutate func(Identity) (TwoFactorProfile, error)) error {
	retries := e.config.Enrollment.ConflictRetries
	for attempt := 0; ; attempt++ {
		ident, err := e.store.GetIdentity(ctx, identityID)
		if err != nil {
			if errors.Is(err, ErrIdentityNotFound) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		profile, err := mutate(ident)
		if err != nil {
			if errors.Is(err, errTransitionDone) {
				return nil
			}
			return err
		}

		err = e.store.UpdateProfile(ctx, identityID, ident.Version, profile)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		e.metricInc(MetricStoreConflict)
		if attempt >= retries {
			return ErrStoreConflict
		}
	}
}

// allowAttempt counts one attempt against an engine-internal budget.
func (e *Engine) allowAttempt(ctx context.Context, key ratelimit.Key, cfg ratelimit.Config) error {
	if e.limiter == nil {
		return nil
	}
	res, err := e.limiter.Allow(ctx, key, cfg)
	if err != nil {
		return err
	}
	if !res.Allowed {
		e.metricInc(MetricRateLimitHit)
		return ErrRateLimited
	}
	return nil
}

func (e *Engine) resetAttempts(ctx context.Context, key ratelimit.Key) {
	if e.limiter == nil {
		return
	}
	_ = e.limiter.Reset(ctx, key)
}
