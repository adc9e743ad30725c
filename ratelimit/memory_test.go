package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryAllowsWithinBudget(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	key := Key{Identifier: "alice", Action: "login"}
	cfg := Config{MaxRequests: 5, Window: time.Minute}

	for i := 0; i < 5; i++ {
		res, err := m.Allow(context.Background(), key, cfg)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != 5-i-1 {
			t.Fatalf("request %d: expected remaining %d, got %d", i+1, 5-i-1, res.Remaining)
		}
	}

	res, err := m.Allow(context.Background(), key, cfg)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("sixth request must be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("rejected request must report zero remaining, got %d", res.Remaining)
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("rejected request must carry RetryAfter, got %v", res.RetryAfter)
	}
}

func TestMemoryWindowExpiryStartsFreshBudget(t *testing.T) {
	current := time.Unix(1700000000, 0).UTC()
	var mu sync.Mutex

	m := NewMemory()
	defer m.Close()
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	key := Key{Identifier: "alice", Action: "login"}
	cfg := Config{MaxRequests: 2, Window: time.Minute}

	for i := 0; i < 3; i++ {
		if _, err := m.Allow(context.Background(), key, cfg); err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
	}

	mu.Lock()
	current = current.Add(61 * time.Second)
	mu.Unlock()

	res, err := m.Allow(context.Background(), key, cfg)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("expected fresh window, got %+v", res)
	}
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	cfg := Config{MaxRequests: 1, Window: time.Minute}

	if res, _ := m.Allow(context.Background(), Key{Identifier: "alice", Action: "login"}, cfg); !res.Allowed {
		t.Fatal("first key must be allowed")
	}
	if res, _ := m.Allow(context.Background(), Key{Identifier: "bob", Action: "login"}, cfg); !res.Allowed {
		t.Fatal("different identifier must have its own budget")
	}
	if res, _ := m.Allow(context.Background(), Key{Identifier: "alice", Action: "upload"}, cfg); !res.Allowed {
		t.Fatal("different action must have its own budget")
	}
	if res, _ := m.Allow(context.Background(), Key{Identifier: "alice", Action: "login"}, cfg); res.Allowed {
		t.Fatal("repeated key must exhaust its budget")
	}
}

func TestMemoryReset(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	key := Key{Identifier: "alice", Action: "login"}
	cfg := Config{MaxRequests: 1, Window: time.Minute}

	if _, err := m.Allow(context.Background(), key, cfg); err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if err := m.Reset(context.Background(), key); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	res, err := m.Allow(context.Background(), key, cfg)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected fresh budget after reset")
	}
}

func TestMemoryRejectsInvalidConfig(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	if _, err := m.Allow(context.Background(), Key{Identifier: "a", Action: "b"}, Config{}); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestMemorySweepEvictsExpiredWindows(t *testing.T) {
	current := time.Unix(1700000000, 0).UTC()
	var mu sync.Mutex

	m := NewMemory()
	defer m.Close()
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	cfg := Config{MaxRequests: 5, Window: time.Minute}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.Allow(context.Background(), Key{Identifier: id, Action: "login"}, cfg); err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
	}

	mu.Lock()
	current = current.Add(2 * time.Minute)
	mu.Unlock()
	m.sweep()

	total := 0
	for i := range m.shards {
		m.shards[i].mu.Lock()
		total += len(m.shards[i].windows)
		m.shards[i].mu.Unlock()
	}
	if total != 0 {
		t.Fatalf("expected all windows evicted, %d remain", total)
	}
}

func TestMemoryConcurrentSingleKey(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	key := Key{Identifier: "alice", Action: "login"}
	cfg := Config{MaxRequests: 100, Window: time.Minute}

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Allow(context.Background(), key, cfg)
			if err != nil {
				t.Errorf("Allow failed: %v", err)
				return
			}
			if res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 100 {
		t.Fatalf("expected exactly 100 allowed, got %d", got)
	}
}
