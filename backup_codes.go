package go2fa

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"
)

// backupCodeAlphabet excludes 0/O/1/I to survive being read over the phone.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newBackupCodeBatch draws count codes with no two equal within the batch.
// Duplicate draws are discarded and redrawn.
func newBackupCodeBatch(identityID string, count, length int) (plaintext []string, hashes [][32]byte, err error) {
	return backupCodeBatch(identityID, count, func() (string, error) {
		return newBackupCode(length)
	})
}

func backupCodeBatch(identityID string, count int, draw func() (string, error)) ([]string, [][32]byte, error) {
	seen := make(map[string]struct{}, count)
	plaintext := make([]string, 0, count)
	hashes := make([][32]byte, 0, count)

	// The ceiling only trips when the source stops producing fresh codes.
	for attempts := 0; len(plaintext) < count; attempts++ {
		if attempts >= count*10 {
			return nil, nil, errors.New("backup code generation kept colliding")
		}
		raw, err := draw()
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		plaintext = append(plaintext, formatBackupCode(raw))
		hashes = append(hashes, backupCodeHash(identityID, raw))
	}
	return plaintext, hashes, nil
}

func newBackupCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := cryptoRandomIndex(len(backupCodeAlphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n])
	}
	return b.String(), nil
}

// formatBackupCode inserts a mid-point hyphen for display. The hyphen is
// cosmetic; canonicalization strips it before hashing.
func formatBackupCode(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

func canonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// backupCodeHash binds the digest to the identity so identical codes issued
// to different identities never collide at rest.
func backupCodeHash(identityID, canonicalCode string) [32]byte {
	data := make([]byte, 0, len(identityID)+1+len(canonicalCode))
	data = append(data, identityID...)
	data = append(data, 0)
	data = append(data, canonicalCode...)
	return sha256.Sum256(data)
}

func cryptoRandomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
