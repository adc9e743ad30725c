package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drazzan/go2fa"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis persists identities as JSON records plus an identifier index.
// Profile updates run inside WATCH so a concurrent write voids the
// transaction instead of being overwritten.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed store. Keys are namespaced under prefix
// ("2fa" when empty).
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "2fa"
	}
	return &Redis{
		client: client,
		prefix: prefix,
	}
}

type record struct {
	ID           string   `json:"id"`
	Identifier   string   `json:"identifier"`
	PasswordHash string   `json:"password_hash"`
	Secret       string   `json:"secret,omitempty"`
	Enabled      bool     `json:"enabled"`
	BackupCodes  []string `json:"backup_codes,omitempty"`
	VerifiedAt   int64    `json:"verified_at,omitempty"`
	SetupAt      int64    `json:"setup_at,omitempty"`
	Version      uint64   `json:"version"`
}

// Put inserts or replaces an identity and its identifier index entry.
func (r *Redis) Put(ctx context.Context, ident go2fa.Identity) (go2fa.Identity, error) {
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	if ident.Version == 0 {
		ident.Version = 1
	}

	data, err := json.Marshal(encodeRecord(ident))
	if err != nil {
		return go2fa.Identity{}, err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.idKey(ident.ID), data, 0)
	if ident.Identifier != "" {
		pipe.Set(ctx, r.identKey(ident.Identifier), ident.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return go2fa.Identity{}, fmt.Errorf("%w: %v", go2fa.ErrStoreUnavailable, err)
	}
	return ident, nil
}

func (r *Redis) GetIdentity(ctx context.Context, id string) (go2fa.Identity, error) {
	raw, err := r.client.Get(ctx, r.idKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return go2fa.Identity{}, go2fa.ErrIdentityNotFound
		}
		return go2fa.Identity{}, fmt.Errorf("%w: %v", go2fa.ErrStoreUnavailable, err)
	}
	return decodeRecord(raw)
}

func (r *Redis) GetIdentityByIdentifier(ctx context.Context, identifier string) (go2fa.Identity, error) {
	id, err := r.client.Get(ctx, r.identKey(identifier)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return go2fa.Identity{}, go2fa.ErrIdentityNotFound
		}
		return go2fa.Identity{}, fmt.Errorf("%w: %v", go2fa.ErrStoreUnavailable, err)
	}
	return r.GetIdentity(ctx, id)
}

func (r *Redis) UpdateProfile(ctx context.Context, id string, expectedVersion uint64, profile go2fa.TwoFactorProfile) error {
	key := r.idKey(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return go2fa.ErrIdentityNotFound
			}
			return fmt.Errorf("%w: %v", go2fa.ErrStoreUnavailable, err)
		}

		ident, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		if ident.Version != expectedVersion {
			return go2fa.ErrVersionConflict
		}

		ident.Profile = profile
		ident.Version++
		data, err := json.Marshal(encodeRecord(ident))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		// The watched key changed under us; same outcome as a stale version.
		return go2fa.ErrVersionConflict
	case errors.Is(err, go2fa.ErrIdentityNotFound),
		errors.Is(err, go2fa.ErrVersionConflict),
		errors.Is(err, go2fa.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", go2fa.ErrStoreUnavailable, err)
	}
}

func (r *Redis) idKey(id string) string {
	return r.prefix + ":id:" + id
}

func (r *Redis) identKey(identifier string) string {
	return r.prefix + ":ident:" + identifier
}

func encodeRecord(ident go2fa.Identity) record {
	rec := record{
		ID:           ident.ID,
		Identifier:   ident.Identifier,
		PasswordHash: ident.PasswordHash,
		Secret:       ident.Profile.Secret,
		Enabled:      ident.Profile.Enabled,
		Version:      ident.Version,
	}
	if !ident.Profile.VerifiedAt.IsZero() {
		rec.VerifiedAt = ident.Profile.VerifiedAt.Unix()
	}
	if !ident.Profile.SetupAt.IsZero() {
		rec.SetupAt = ident.Profile.SetupAt.Unix()
	}
	for _, digest := range ident.Profile.BackupCodes {
		rec.BackupCodes = append(rec.BackupCodes, hex.EncodeToString(digest[:]))
	}
	return rec
}

func decodeRecord(raw []byte) (go2fa.Identity, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return go2fa.Identity{}, fmt.Errorf("%w: %v", go2fa.ErrStoreUnavailable, err)
	}

	ident := go2fa.Identity{
		ID:           rec.ID,
		Identifier:   rec.Identifier,
		PasswordHash: rec.PasswordHash,
		Version:      rec.Version,
		Profile: go2fa.TwoFactorProfile{
			Secret:  rec.Secret,
			Enabled: rec.Enabled,
		},
	}
	if rec.VerifiedAt != 0 {
		ident.Profile.VerifiedAt = time.Unix(rec.VerifiedAt, 0).UTC()
	}
	if rec.SetupAt != 0 {
		ident.Profile.SetupAt = time.Unix(rec.SetupAt, 0).UTC()
	}
	for _, encoded := range rec.BackupCodes {
		digest, err := hex.DecodeString(encoded)
		if err != nil || len(digest) != 32 {
			return go2fa.Identity{}, fmt.Errorf("%w: corrupt backup code digest", go2fa.ErrStoreUnavailable)
		}
		var d [32]byte
		copy(d[:], digest)
		ident.Profile.BackupCodes = append(ident.Profile.BackupCodes, d)
	}
	return ident, nil
}
