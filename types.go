package go2fa

import (
	"context"
	"time"
)

// EnrollmentState is the derived lifecycle position of a [TwoFactorProfile].
type EnrollmentState uint8

const (
	// StateDisabled means no secret is stored and two-factor is off.
	StateDisabled EnrollmentState = iota
	// StatePendingVerification means a secret was provisioned but never confirmed.
	StatePendingVerification
	// StateEnabled means enrollment was confirmed with a valid code.
	StateEnabled
)

func (s EnrollmentState) String() string {
	switch s {
	case StatePendingVerification:
		return "pending_verification"
	case StateEnabled:
		return "enabled"
	default:
		return "disabled"
	}
}

// TwoFactorProfile is the per-identity enrollment record. Secrets are stored
// base32-encoded without padding; backup codes only as SHA-256 digests.
type TwoFactorProfile struct {
	Secret      string
	Enabled     bool
	BackupCodes [][32]byte
	VerifiedAt  time.Time
	SetupAt     time.Time
}

// State derives the enrollment state. Enabled is only meaningful together
// with a stored secret; an enabled flag without a secret counts as disabled.
func (p TwoFactorProfile) State() EnrollmentState {
	switch {
	case p.Secret == "":
		return StateDisabled
	case p.Enabled:
		return StateEnabled
	default:
		return StatePendingVerification
	}
}

// Identity is the credential record the engine operates on. Version is the
// optimistic-concurrency token for profile updates.
type Identity struct {
	ID           string
	Identifier   string
	PasswordHash string
	Profile      TwoFactorProfile
	Version      uint64
}

// CredentialStore abstracts identity persistence.
//
// UpdateProfile must replace the whole profile only when the stored version
// still equals expectedVersion, advance the version on success, and return
// [ErrVersionConflict] otherwise. Missing identities map to [ErrIdentityNotFound].
type CredentialStore interface {
	GetIdentity(ctx context.Context, id string) (Identity, error)
	GetIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
	UpdateProfile(ctx context.Context, id string, expectedVersion uint64, profile TwoFactorProfile) error
}

// PasswordVerifier checks a plaintext password against an encoded hash.
type PasswordVerifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// SetupResult carries the one-time plaintext material returned by [Engine.Setup].
// None of it is recoverable afterwards.
type SetupResult struct {
	Secret          string
	ProvisioningURI string
	QRCode          string
	BackupCodes     []string
}

// StatusInfo is the read-only enrollment summary returned by [Engine.Status].
type StatusInfo struct {
	State                EnrollmentState
	Enabled              bool
	BackupCodesRemaining int
	VerifiedAt           time.Time
}

// AuthResult reports a successful [Engine.Authenticate] call.
type AuthResult struct {
	IdentityID           string
	Identifier           string
	UsedBackupCode       bool
	BackupCodesRemaining int
}
