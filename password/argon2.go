package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned when an encoded hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

const phcPrefix = "$argon2id$"

// Params tunes the Argon2id key derivation.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the interactive-login recommendation: 64 MiB,
// three passes, two lanes.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher derives and verifies Argon2id hashes with fixed parameters.
type Hasher struct {
	params Params
}

// New validates params and returns a Hasher. Floors reject parameters weak
// enough to make offline cracking cheap.
func New(p Params) (*Hasher, error) {
	if p.Memory < 8*1024 {
		return nil, errors.New("memory must be at least 8192 KiB")
	}
	if p.Time < 1 {
		return nil, errors.New("time cost must be at least 1")
	}
	if p.Parallelism < 1 {
		return nil, errors.New("parallelism must be at least 1")
	}
	if p.SaltLength < 16 {
		return nil, errors.New("salt length must be at least 16")
	}
	if p.KeyLength < 16 {
		return nil, errors.New("key length must be at least 16")
	}
	return &Hasher{params: p}, nil
}

// Hash derives a fresh salted hash in PHC format.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 bytes")
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key with the parameters embedded in encodedHash and
// compares in constant time.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	params, salt, key, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		params.Time,
		params.Memory,
		params.Parallelism,
		uint32(len(key)),
	)

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with parameters
// weaker than the hasher's current ones.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	params, _, key, err := decode(encodedHash)
	if err != nil {
		return false, err
	}

	switch {
	case params.Memory < h.params.Memory,
		params.Time < h.params.Time,
		params.Parallelism < h.params.Parallelism,
		uint32(len(key)) != h.params.KeyLength:
		return true, nil
	default:
		return false, nil
	}
}

func decode(encodedHash string) (Params, []byte, []byte, error) {
	var p Params

	if !strings.HasPrefix(encodedHash, phcPrefix) {
		return p, nil, nil, ErrMalformedHash
	}
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < 8 {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < 16 {
		return p, nil, nil, ErrMalformedHash
	}

	return p, salt, key, nil
}
