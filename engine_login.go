package go2fa

import (
	"context"
	"errors"

	"github.com/drazzan/go2fa/ratelimit"
)

const actionLogin = "login"

// Authenticate performs a full credential check: identifier and password,
// then, when two-factor is enabled, a TOTP code or backup code. Attempts
// are counted per identifier and per client IP (when present in ctx)
// against the login budget; both counters reset on success.
//
// Failures deliberately collapse into [ErrInvalidCredentials] or
// [ErrCodeInvalid] so responses do not reveal which check failed.
func (e *Engine) Authenticate(ctx context.Context, identifier, password, secondFactor string) (AuthResult, error) {
	if err := e.ready(); err != nil {
		return AuthResult{}, err
	}
	if identifier == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	idKey := ratelimit.Key{Identifier: identifier, Action: actionLogin}
	keys := []ratelimit.Key{idKey}
	if ip := clientIPFromContext(ctx); ip != "" {
		keys = append(keys, ratelimit.Key{Identifier: ip, Action: actionLogin})
	}
	for _, key := range keys {
		if err := e.allowAttempt(ctx, key, e.config.Limits.Login); err != nil {
			if errors.Is(err, ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitRateLimit(ctx, "login", "")
			}
			return AuthResult{}, err
		}
	}

	ident, err := e.store.GetIdentityByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return AuthResult{}, e.failLogin(ctx, "", ErrInvalidCredentials)
		}
		return AuthResult{}, err
	}

	ok, err := e.passwords.Verify(password, ident.PasswordHash)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, e.failLogin(ctx, ident.ID, ErrInvalidCredentials)
	}

	result := AuthResult{
		IdentityID:           ident.ID,
		Identifier:           ident.Identifier,
		BackupCodesRemaining: len(ident.Profile.BackupCodes),
	}

	if ident.Profile.State() == StateEnabled {
		if secondFactor == "" {
			e.metricInc(MetricSecondFactorRequired)
			e.emitAudit(ctx, auditEventSecondFactorRequired, false, ident.ID, ErrSecondFactorRequired, nil)
			return AuthResult{}, ErrSecondFactorRequired
		}

		usedBackup, remaining, err := e.checkSecondFactor(ctx, ident, secondFactor)
		if err != nil {
			return AuthResult{}, e.failLogin(ctx, ident.ID, err)
		}
		result.UsedBackupCode = usedBackup
		result.BackupCodesRemaining = remaining
	}

	for _, key := range keys {
		e.resetAttempts(ctx, key)
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, ident.ID, nil, func() map[string]string {
		if result.UsedBackupCode {
			return map[string]string{"second_factor": "backup_code"}
		}
		if ident.Profile.State() == StateEnabled {
			return map[string]string{"second_factor": "totp"}
		}
		return nil
	})
	return result, nil
}

// checkSecondFactor accepts either a current TOTP code or an unused backup
// code. TOTP is tried first; anything that fails both checks reads as an
// invalid code.
func (e *Engine) checkSecondFactor(ctx context.Context, ident Identity, secondFactor string) (usedBackup bool, remaining int, err error) {
	secret, err := e.totp.DecodeSecret(ident.Profile.Secret)
	if err != nil {
		return false, 0, err
	}
	ok, err := e.totp.VerifyCode(secret, secondFactor, e.clock())
	if err != nil {
		return false, 0, err
	}
	if ok {
		return false, len(ident.Profile.BackupCodes), nil
	}

	left, err := e.consumeBackupCode(ctx, ident.ID, secondFactor)
	if err != nil {
		if errors.Is(err, ErrBackupCodeInvalid) {
			return false, 0, ErrCodeInvalid
		}
		return false, 0, err
	}
	e.metricInc(MetricBackupCodeUsed)
	e.emitAudit(ctx, auditEventBackupCodeUsed, true, ident.ID, nil, nil)
	return true, left, nil
}

func (e *Engine) failLogin(ctx context.Context, identityID string, err error) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, identityID, err, nil)
	return err
}
