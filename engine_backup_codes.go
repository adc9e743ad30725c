package go2fa

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/drazzan/go2fa/ratelimit"
)

// ConsumeBackupCode authenticates with a single-use backup code and burns
// it. Returns how many codes remain. Lookup is by identity-bound SHA-256
// digest; the plaintext never touches storage.
func (e *Engine) ConsumeBackupCode(ctx context.Context, identityID, code string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if identityID == "" {
		return 0, ErrIdentityNotFound
	}

	key := ratelimit.Key{Identifier: identityID, Action: actionSecondFactor}
	if err := e.allowAttempt(ctx, key, e.config.Limits.SecondFactor); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitRateLimit(ctx, "backup-code", identityID)
		}
		return 0, err
	}

	remaining, err := e.consumeBackupCode(ctx, identityID, code)
	if err != nil {
		e.metricInc(MetricBackupCodeFailed)
		e.emitAudit(ctx, auditEventBackupCodeFailed, false, identityID, err, nil)
		return 0, err
	}

	e.resetAttempts(ctx, key)
	e.metricInc(MetricBackupCodeUsed)
	e.emitAudit(ctx, auditEventBackupCodeUsed, true, identityID, nil, nil)
	return remaining, nil
}

// consumeBackupCode is the unmetered core shared by ConsumeBackupCode and
// the login flow, which counts attempts against its own budget.
func (e *Engine) consumeBackupCode(ctx context.Context, identityID, code string) (int, error) {
	canonical := canonicalizeBackupCode(code)
	if canonical == "" {
		return 0, ErrBackupCodeInvalid
	}
	digest := backupCodeHash(identityID, canonical)

	var remaining int
	err := e.mutateProfile(ctx, identityID, func(ident Identity) (TwoFactorProfile, error) {
		profile := ident.Profile
		if profile.State() != StateEnabled {
			return TwoFactorProfile{}, ErrNotEnabled
		}

		idx := -1
		for i := range profile.BackupCodes {
			if subtle.ConstantTimeCompare(profile.BackupCodes[i][:], digest[:]) == 1 {
				idx = i
			}
		}
		if idx < 0 {
			return TwoFactorProfile{}, ErrBackupCodeInvalid
		}

		kept := make([][32]byte, 0, len(profile.BackupCodes)-1)
		kept = append(kept, profile.BackupCodes[:idx]...)
		kept = append(kept, profile.BackupCodes[idx+1:]...)
		profile.BackupCodes = kept
		remaining = len(kept)
		return profile, nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// RegenerateBackupCodes replaces every backup code after a successful TOTP
// check. Previously issued codes stop working immediately.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, identityID, totpCode string) ([]string, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if identityID == "" {
		return nil, ErrIdentityNotFound
	}

	key := ratelimit.Key{Identifier: identityID, Action: actionSecondFactor}
	if err := e.allowAttempt(ctx, key, e.config.Limits.SecondFactor); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitRateLimit(ctx, "backup-regenerate", identityID)
		}
		return nil, err
	}

	plaintext, hashes, err := newBackupCodeBatch(identityID,
		e.config.Enrollment.BackupCodeCount, e.config.Enrollment.BackupCodeLength)
	if err != nil {
		return nil, err
	}

	err = e.mutateProfile(ctx, identityID, func(ident Identity) (TwoFactorProfile, error) {
		profile := ident.Profile
		if profile.State() != StateEnabled {
			return TwoFactorProfile{}, ErrNotEnabled
		}

		secret, err := e.totp.DecodeSecret(profile.Secret)
		if err != nil {
			return TwoFactorProfile{}, err
		}
		ok, err := e.totp.VerifyCode(secret, totpCode, e.clock())
		if err != nil {
			return TwoFactorProfile{}, err
		}
		if !ok {
			return TwoFactorProfile{}, ErrCodeInvalid
		}

		profile.BackupCodes = hashes
		return profile, nil
	})
	if err != nil {
		e.emitAudit(ctx, auditEventBackupCodesGenerated, false, identityID, err, nil)
		return nil, err
	}

	e.resetAttempts(ctx, key)
	e.metricInc(MetricBackupCodesGenerated)
	e.emitAudit(ctx, auditEventBackupCodesGenerated, true, identityID, nil, nil)
	return plaintext, nil
}
