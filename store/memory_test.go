package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drazzan/go2fa"
)

func TestMemoryPutAssignsIDAndVersion(t *testing.T) {
	m := NewMemory()

	ident, err := m.Put(context.Background(), go2fa.Identity{Identifier: "alice"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ident.ID == "" {
		t.Fatal("expected generated ID")
	}
	if ident.Version != 1 {
		t.Fatalf("expected version 1, got %d", ident.Version)
	}

	byID, err := m.GetIdentity(context.Background(), ident.ID)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	byName, err := m.GetIdentityByIdentifier(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetIdentityByIdentifier failed: %v", err)
	}
	if byID.ID != byName.ID {
		t.Fatal("lookups must resolve the same identity")
	}
}

func TestMemoryGetUnknown(t *testing.T) {
	m := NewMemory()

	if _, err := m.GetIdentity(context.Background(), "missing"); !errors.Is(err, go2fa.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
	if _, err := m.GetIdentityByIdentifier(context.Background(), "missing"); !errors.Is(err, go2fa.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestMemoryUpdateProfileBumpsVersion(t *testing.T) {
	m := NewMemory()
	ident, _ := m.Put(context.Background(), go2fa.Identity{ID: "id-1", Identifier: "alice"})

	profile := go2fa.TwoFactorProfile{
		Secret:  "JBSWY3DPEHPK3PXP",
		SetupAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := m.UpdateProfile(context.Background(), "id-1", ident.Version, profile); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	updated, err := m.GetIdentity(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if updated.Version != ident.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}
	if updated.Profile.Secret != profile.Secret {
		t.Fatal("profile was not stored")
	}
}

func TestMemoryUpdateProfileRejectsStaleVersion(t *testing.T) {
	m := NewMemory()
	ident, _ := m.Put(context.Background(), go2fa.Identity{ID: "id-1"})

	if err := m.UpdateProfile(context.Background(), "id-1", ident.Version, go2fa.TwoFactorProfile{Secret: "A"}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Same expected version again: the first write already bumped it.
	err := m.UpdateProfile(context.Background(), "id-1", ident.Version, go2fa.TwoFactorProfile{Secret: "B"})
	if !errors.Is(err, go2fa.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	current, _ := m.GetIdentity(context.Background(), "id-1")
	if current.Profile.Secret != "A" {
		t.Fatal("losing write must not overwrite")
	}
}

func TestMemoryUpdateProfileUnknownIdentity(t *testing.T) {
	m := NewMemory()
	if err := m.UpdateProfile(context.Background(), "missing", 1, go2fa.TwoFactorProfile{}); !errors.Is(err, go2fa.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	m.Put(context.Background(), go2fa.Identity{
		ID: "id-1",
		Profile: go2fa.TwoFactorProfile{
			BackupCodes: [][32]byte{{1}, {2}},
		},
		Version: 1,
	})

	got, _ := m.GetIdentity(context.Background(), "id-1")
	got.Profile.BackupCodes[0] = [32]byte{9}

	again, _ := m.GetIdentity(context.Background(), "id-1")
	if again.Profile.BackupCodes[0] != ([32]byte{1}) {
		t.Fatal("mutating a returned identity must not affect the store")
	}
}
