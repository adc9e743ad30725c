package go2fa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drazzan/go2fa/ratelimit"
)

const actionSecondFactor = "second-factor"

// Setup provisions a fresh TOTP secret and backup codes for the identity
// and moves the profile to pending verification. Calling Setup again before
// verification replaces the pending secret. The returned plaintext material
// is shown once and never recoverable.
func (e *Engine) Setup(ctx context.Context, identityID string) (*SetupResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if identityID == "" {
		return nil, ErrIdentityNotFound
	}

	_, secretB32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	plaintext, hashes, err := newBackupCodeBatch(identityID,
		e.config.Enrollment.BackupCodeCount, e.config.Enrollment.BackupCodeLength)
	if err != nil {
		return nil, err
	}

	var account string
	err = e.mutateProfile(ctx, identityID, func(ident Identity) (TwoFactorProfile, error) {
		if ident.Profile.State() == StateEnabled {
			return TwoFactorProfile{}, ErrAlreadyEnabled
		}
		account = ident.Identifier
		return TwoFactorProfile{
			Secret:      secretB32,
			BackupCodes: hashes,
			SetupAt:     e.clock(),
		}, nil
	})
	if err != nil {
		e.emitAudit(ctx, auditEventSetupRequested, false, identityID, err, nil)
		return nil, err
	}

	uri := e.totp.ProvisionURI(secretB32, account)
	qr, err := qrPayload(uri, e.config.Enrollment.QRCodeSize)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSetupRequested)
	e.emitAudit(ctx, auditEventSetupRequested, true, identityID, nil, nil)

	return &SetupResult{
		Secret:          secretB32,
		ProvisioningURI: uri,
		QRCode:          qr,
		BackupCodes:     plaintext,
	}, nil
}

// Verify confirms a pending enrollment with a TOTP code and enables
// two-factor. Verifying an already-enabled profile with a valid code is a
// no-op success, which is what makes concurrent Verify calls race safely.
func (e *Engine) Verify(ctx context.Context, identityID, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if identityID == "" {
		return ErrIdentityNotFound
	}

	started := e.clock()
	key := ratelimit.Key{Identifier: identityID, Action: actionSecondFactor}
	if err := e.allowAttempt(ctx, key, e.config.Limits.SecondFactor); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitRateLimit(ctx, "verify", identityID)
		}
		return err
	}

	err := e.mutateProfile(ctx, identityID, func(ident Identity) (TwoFactorProfile, error) {
		profile := ident.Profile
		if profile.Secret == "" {
			return TwoFactorProfile{}, ErrNotSetUp
		}
		if e.setupExpired(profile, e.clock()) {
			return TwoFactorProfile{}, ErrSetupExpired
		}

		secret, err := e.totp.DecodeSecret(profile.Secret)
		if err != nil {
			return TwoFactorProfile{}, err
		}
		ok, err := e.totp.VerifyCode(secret, code, e.clock())
		if err != nil {
			return TwoFactorProfile{}, err
		}
		if !ok {
			return TwoFactorProfile{}, ErrCodeInvalid
		}

		if profile.Enabled {
			return TwoFactorProfile{}, errTransitionDone
		}

		profile.Enabled = true
		profile.VerifiedAt = e.clock()
		return profile, nil
	})
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, identityID, err, nil)
		return err
	}

	e.resetAttempts(ctx, key)
	e.metricInc(MetricVerifySuccess)
	e.metrics.Observe(MetricVerifyLatency, e.clock().Sub(started))
	e.emitAudit(ctx, auditEventEnabled, true, identityID, nil, nil)
	return nil
}

// Disable turns two-factor off after re-checking the account password. The
// secret, backup codes, and verification timestamp are cleared in a single
// conditional write.
func (e *Engine) Disable(ctx context.Context, identityID, password string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if identityID == "" {
		return ErrIdentityNotFound
	}

	err := e.mutateProfile(ctx, identityID, func(ident Identity) (TwoFactorProfile, error) {
		ok, err := e.passwords.Verify(password, ident.PasswordHash)
		if err != nil {
			return TwoFactorProfile{}, err
		}
		if !ok {
			return TwoFactorProfile{}, ErrPasswordInvalid
		}
		if ident.Profile.State() != StateEnabled {
			return TwoFactorProfile{}, ErrNotEnabled
		}
		return TwoFactorProfile{}, nil
	})
	if err != nil {
		e.metricInc(MetricDisableFailure)
		e.emitAudit(ctx, auditEventDisableFailure, false, identityID, err, nil)
		return err
	}

	e.metricInc(MetricDisableSuccess)
	e.emitAudit(ctx, auditEventDisabled, true, identityID, nil, nil)
	return nil
}

// Status reports the identity's enrollment state without side effects.
func (e *Engine) Status(ctx context.Context, identityID string) (StatusInfo, error) {
	if err := e.ready(); err != nil {
		return StatusInfo{}, err
	}
	if identityID == "" {
		return StatusInfo{}, ErrIdentityNotFound
	}

	ident, err := e.store.GetIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return StatusInfo{}, err
		}
		return StatusInfo{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	profile := ident.Profile
	state := profile.State()
	if e.setupExpired(profile, e.clock()) {
		state = StateDisabled
	}

	return StatusInfo{
		State:                state,
		Enabled:              state == StateEnabled,
		BackupCodesRemaining: len(profile.BackupCodes),
		VerifiedAt:           profile.VerifiedAt,
	}, nil
}

func (e *Engine) setupExpired(p TwoFactorProfile, now time.Time) bool {
	ttl := e.config.Enrollment.PendingSetupTTL
	if ttl <= 0 {
		return false
	}
	return p.State() == StatePendingVerification && now.Sub(p.SetupAt) > ttl
}
