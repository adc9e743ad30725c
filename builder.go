package go2fa

import (
	"errors"
	"time"

	"github.com/drazzan/go2fa/password"
	"github.com/drazzan/go2fa/ratelimit"
)

// Builder assembles an [Engine]. A builder is single-use.
type Builder struct {
	config    Config
	store     CredentialStore
	passwords PasswordVerifier
	limiter   ratelimit.Limiter
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithPasswordVerifier overrides the default Argon2id verifier.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.passwords = v
	return b
}

// WithRateLimiter sets the attempt limiter shared by login and
// second-factor budgets. Defaults to an in-process [ratelimit.Memory].
func (b *Builder) WithRateLimiter(l ratelimit.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithAuditSink sets the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles counter recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, fills in defaults, and returns a
// ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	verifier := b.passwords
	if verifier == nil {
		hasher, err := password.New(password.DefaultParams())
		if err != nil {
			return nil, err
		}
		verifier = hasher
	}

	limiter := b.limiter
	if limiter == nil {
		limiter = ratelimit.NewMemory()
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		passwords: verifier,
		limiter:   limiter,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		totp:      newTOTPManager(cfg.TOTP),
		now:       b.clock,
	}

	b.built = true

	return engine, nil
}
