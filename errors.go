package go2fa

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrIdentityNotFound is returned when the credential store has no such identity.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidCredentials is returned on identifier/password mismatch during login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordInvalid is returned when a password re-check fails on Disable.
	ErrPasswordInvalid = errors.New("invalid password")
	// ErrAlreadyEnabled is returned when Setup is called on an enabled profile.
	ErrAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrNotSetUp is returned when Verify is called with no pending secret.
	ErrNotSetUp = errors.New("two-factor setup not started")
	// ErrNotEnabled is returned when an operation requires an enabled profile.
	ErrNotEnabled = errors.New("two-factor not enabled")
	// ErrSetupExpired is returned when a pending setup outlived its TTL.
	ErrSetupExpired = errors.New("two-factor setup expired")
	// ErrCodeInvalid is returned when a TOTP code fails verification.
	ErrCodeInvalid = errors.New("invalid verification code")
	// ErrSecondFactorRequired is returned when login needs a second factor.
	ErrSecondFactorRequired = errors.New("second factor required")
	// ErrBackupCodeInvalid is returned when a backup code is unknown or already used.
	ErrBackupCodeInvalid = errors.New("invalid backup code")
	// ErrSecretCorrupt is returned when a stored secret is not valid base32.
	ErrSecretCorrupt = errors.New("stored two-factor secret is corrupt")
	// ErrRateLimited is returned when an attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrVersionConflict is returned by stores when a conditional update lost a race.
	ErrVersionConflict = errors.New("profile version conflict")
	// ErrStoreConflict is returned when conditional updates kept losing after retry.
	ErrStoreConflict = errors.New("credential store conflict")
	// ErrStoreUnavailable is returned when the credential store backend fails.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
