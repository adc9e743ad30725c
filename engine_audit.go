package go2fa

import (
	"context"
	"errors"
)

const (
	auditEventSetupRequested       = "twofactor_setup_requested"
	auditEventEnabled              = "twofactor_enabled"
	auditEventVerifyFailure        = "twofactor_verify_failure"
	auditEventDisabled             = "twofactor_disabled"
	auditEventDisableFailure       = "twofactor_disable_failure"
	auditEventBackupCodesGenerated = "backup_codes_generated"
	auditEventBackupCodeUsed       = "backup_code_used"
	auditEventBackupCodeFailed     = "backup_code_failed"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventSecondFactorRequired = "second_factor_required"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
)

// AuditErrorCode is the stable machine-readable error tag on audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrPasswordInvalid      AuditErrorCode = "invalid_password"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrAlreadyEnabled       AuditErrorCode = "already_enabled"
	auditErrNotSetUp             AuditErrorCode = "not_set_up"
	auditErrNotEnabled           AuditErrorCode = "not_enabled"
	auditErrSetupExpired         AuditErrorCode = "setup_expired"
	auditErrCodeInvalid          AuditErrorCode = "code_invalid"
	auditErrSecondFactorRequired AuditErrorCode = "second_factor_required"
	auditErrBackupCodeInvalid    AuditErrorCode = "backup_code_invalid"
	auditErrIdentityNotFound     AuditErrorCode = "identity_not_found"
	auditErrStoreConflict        AuditErrorCode = "store_conflict"
	auditErrSecretCorrupt        AuditErrorCode = "secret_corrupt"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp:  e.clock().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, identityID string) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, identityID, ErrRateLimited, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPasswordInvalid):
		return auditErrPasswordInvalid
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAlreadyEnabled):
		return auditErrAlreadyEnabled
	case errors.Is(err, ErrNotSetUp):
		return auditErrNotSetUp
	case errors.Is(err, ErrNotEnabled):
		return auditErrNotEnabled
	case errors.Is(err, ErrSetupExpired):
		return auditErrSetupExpired
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrSecondFactorRequired):
		return auditErrSecondFactorRequired
	case errors.Is(err, ErrBackupCodeInvalid):
		return auditErrBackupCodeInvalid
	case errors.Is(err, ErrIdentityNotFound):
		return auditErrIdentityNotFound
	case errors.Is(err, ErrStoreConflict), errors.Is(err, ErrVersionConflict):
		return auditErrStoreConflict
	case errors.Is(err, ErrSecretCorrupt):
		return auditErrSecretCorrupt
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
