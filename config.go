package go2fa

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drazzan/go2fa/ratelimit"
)

// Config groups all engine tuning parameters. Zero values are not usable;
// start from [DefaultConfig] and override.
type Config struct {
	TOTP       TOTPConfig
	Enrollment EnrollmentConfig
	Limits     LimitsConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// TOTPConfig controls code generation and verification.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int
}

// EnrollmentConfig controls the setup/verify lifecycle.
type EnrollmentConfig struct {
	BackupCodeCount  int
	BackupCodeLength int

	// PendingSetupTTL bounds how long an unverified secret stays valid.
	// Zero means pending setups never expire.
	PendingSetupTTL time.Duration

	// QRCodeSize is the rendered provisioning QR edge length in pixels.
	// Zero disables QR rendering in Setup responses.
	QRCodeSize int

	// ConflictRetries is how many times a version-conditional profile
	// update is retried after losing a write race.
	ConflictRetries int
}

// LimitsConfig holds the engine-internal attempt budgets. Route-level
// budgets belong to the middleware package, not here.
type LimitsConfig struct {
	Login        ratelimit.Config
	SecondFactor ratelimit.Config
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process atomic counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production baseline: 6-digit SHA1 codes over a
// 30-second period with one step of clock drift, ten 16-symbol backup codes,
// and a single conflict retry.
func DefaultConfig() Config {
	return Config{
		TOTP: TOTPConfig{
			Issuer:    "go2fa",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Enrollment: EnrollmentConfig{
			BackupCodeCount:  10,
			BackupCodeLength: 16,
			QRCodeSize:       256,
			ConflictRetries:  1,
		},
		Limits: LimitsConfig{
			Login:        ratelimit.Login,
			SecondFactor: ratelimit.Strict,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations that would weaken verification or
// break interoperability with authenticator apps.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("TOTP.Issuer must not be empty")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("TOTP.Digits must be between 6 and 8")
	}
	if c.TOTP.Period < 15 {
		return errors.New("TOTP.Period must be at least 15 seconds")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP.Algorithm must be SHA1, SHA256, or SHA512")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("TOTP.Skew must be between 0 and 2")
	}

	if c.Enrollment.BackupCodeCount < 1 || c.Enrollment.BackupCodeCount > 64 {
		return errors.New("Enrollment.BackupCodeCount must be between 1 and 64")
	}
	if c.Enrollment.BackupCodeLength < 8 || c.Enrollment.BackupCodeLength > 32 {
		return errors.New("Enrollment.BackupCodeLength must be between 8 and 32")
	}
	if c.Enrollment.PendingSetupTTL < 0 {
		return errors.New("Enrollment.PendingSetupTTL must not be negative")
	}
	if c.Enrollment.QRCodeSize != 0 && (c.Enrollment.QRCodeSize < 64 || c.Enrollment.QRCodeSize > 1024) {
		return errors.New("Enrollment.QRCodeSize must be 0 or between 64 and 1024")
	}
	if c.Enrollment.ConflictRetries < 0 || c.Enrollment.ConflictRetries > 5 {
		return errors.New("Enrollment.ConflictRetries must be between 0 and 5")
	}

	if err := c.Limits.Login.Validate(); err != nil {
		return fmt.Errorf("Limits.Login: %w", err)
	}
	if err := c.Limits.SecondFactor.Validate(); err != nil {
		return fmt.Errorf("Limits.SecondFactor: %w", err)
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}

	return nil
}
