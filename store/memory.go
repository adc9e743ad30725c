package store

import (
	"context"
	"sync"

	"github.com/drazzan/go2fa"
	"github.com/google/uuid"
)

// Memory is a map-backed credential store guarded by one RWMutex. It is
// the reference implementation of the conditional-update contract.
type Memory struct {
	mu     sync.RWMutex
	byID   map[string]go2fa.Identity
	byName map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[string]go2fa.Identity),
		byName: make(map[string]string),
	}
}

// Put inserts or replaces an identity. An empty ID gets a random UUID and
// a zero version becomes 1. Returns the identity as stored.
func (m *Memory) Put(_ context.Context, ident go2fa.Identity) (go2fa.Identity, error) {
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	if ident.Version == 0 {
		ident.Version = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byID[ident.ID] = cloneIdentity(ident)
	if ident.Identifier != "" {
		m.byName[ident.Identifier] = ident.ID
	}
	return ident, nil
}

func (m *Memory) GetIdentity(_ context.Context, id string) (go2fa.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.byID[id]
	if !ok {
		return go2fa.Identity{}, go2fa.ErrIdentityNotFound
	}
	return cloneIdentity(ident), nil
}

func (m *Memory) GetIdentityByIdentifier(_ context.Context, identifier string) (go2fa.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[identifier]
	if !ok {
		return go2fa.Identity{}, go2fa.ErrIdentityNotFound
	}
	ident, ok := m.byID[id]
	if !ok {
		return go2fa.Identity{}, go2fa.ErrIdentityNotFound
	}
	return cloneIdentity(ident), nil
}

func (m *Memory) UpdateProfile(_ context.Context, id string, expectedVersion uint64, profile go2fa.TwoFactorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ident, ok := m.byID[id]
	if !ok {
		return go2fa.ErrIdentityNotFound
	}
	if ident.Version != expectedVersion {
		return go2fa.ErrVersionConflict
	}

	ident.Profile = cloneProfile(profile)
	ident.Version++
	m.byID[id] = ident
	return nil
}

func cloneIdentity(ident go2fa.Identity) go2fa.Identity {
	ident.Profile = cloneProfile(ident.Profile)
	return ident
}

func cloneProfile(p go2fa.TwoFactorProfile) go2fa.TwoFactorProfile {
	if p.BackupCodes != nil {
		codes := make([][32]byte, len(p.BackupCodes))
		copy(codes, p.BackupCodes)
		p.BackupCodes = codes
	}
	return p
}
