package go2fa

import (
	"context"
	"sync"
	"testing"
	"time"
)

type mockStore struct {
	mu     sync.Mutex
	byID   map[string]Identity
	byName map[string]string

	getErr    error
	updateErr error

	// forceConflicts makes the next N profile updates lose with
	// ErrVersionConflict regardless of the submitted version.
	forceConflicts int

	getCalls    int
	updateCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		byID:   make(map[string]Identity),
		byName: make(map[string]string),
	}
}

func (m *mockStore) put(ident Identity) Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ident.Version == 0 {
		ident.Version = 1
	}
	m.byID[ident.ID] = copyIdentity(ident)
	if ident.Identifier != "" {
		m.byName[ident.Identifier] = ident.ID
	}
	return ident
}

func (m *mockStore) GetIdentity(_ context.Context, id string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++
	if m.getErr != nil {
		return Identity{}, m.getErr
	}
	ident, ok := m.byID[id]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return copyIdentity(ident), nil
}

func (m *mockStore) GetIdentityByIdentifier(_ context.Context, identifier string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return Identity{}, m.getErr
	}
	id, ok := m.byName[identifier]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return copyIdentity(m.byID[id]), nil
}

func (m *mockStore) UpdateProfile(_ context.Context, id string, expectedVersion uint64, profile TwoFactorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return ErrVersionConflict
	}

	ident, ok := m.byID[id]
	if !ok {
		return ErrIdentityNotFound
	}
	if ident.Version != expectedVersion {
		return ErrVersionConflict
	}

	ident.Profile = copyProfile(profile)
	ident.Version++
	m.byID[id] = ident
	return nil
}

func (m *mockStore) identity(t *testing.T, id string) Identity {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	ident, ok := m.byID[id]
	if !ok {
		t.Fatalf("identity %q not in store", id)
	}
	return copyIdentity(ident)
}

func copyIdentity(ident Identity) Identity {
	ident.Profile = copyProfile(ident.Profile)
	return ident
}

func copyProfile(p TwoFactorProfile) TwoFactorProfile {
	if p.BackupCodes != nil {
		codes := make([][32]byte, len(p.BackupCodes))
		copy(codes, p.BackupCodes)
		p.BackupCodes = codes
	}
	return p
}

// plainVerifier treats the stored hash as the plaintext password. Good
// enough for engine tests; the real verifier has its own suite.
type plainVerifier struct{}

func (plainVerifier) Verify(password, encodedHash string) (bool, error) {
	return password == encodedHash, nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{t: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Enrollment.QRCodeSize = 0
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, store CredentialStore, clk *testClock, cfg Config) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithPasswordVerifier(plainVerifier{}).
		WithClock(clk.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// currentCode computes the TOTP code an authenticator app would show for
// the given base32 secret at the given instant.
func currentCode(t *testing.T, engine *Engine, secretB32 string, at time.Time) string {
	t.Helper()

	secret, err := engine.totp.DecodeSecret(secretB32)
	if err != nil {
		t.Fatalf("DecodeSecret failed: %v", err)
	}
	counter := at.Unix() / int64(engine.config.TOTP.Period)
	code, err := hotpCode(secret, counter, engine.config.TOTP.Digits, engine.config.TOTP.Algorithm)
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}

// enroll walks an identity through Setup and Verify and returns the
// plaintext setup material.
func enroll(t *testing.T, engine *Engine, clk *testClock, identityID string) *SetupResult {
	t.Helper()

	ctx := context.Background()
	result, err := engine.Setup(ctx, identityID)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	code := currentCode(t, engine, result.Secret, clk.Now())
	if err := engine.Verify(ctx, identityID, code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	return result
}
