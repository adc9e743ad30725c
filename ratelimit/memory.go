package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

type window struct {
	resetAt time.Time
	count   int
}

type shard struct {
	mu      sync.Mutex
	windows map[string]window
}

// Memory is an in-process fixed-window limiter. Keys are sharded across 64
// independently locked maps so hot paths never contend on a global lock.
// Counters are process-local; use [Redis] when several nodes must share a
// budget.
type Memory struct {
	shards     [shardCount]shard
	now        func() time.Time
	sweepEvery time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// MemoryOption customizes a [Memory] limiter.
type MemoryOption func(*Memory)

// WithSweepInterval overrides how often expired windows are evicted.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.sweepEvery = d
		}
	}
}

// NewMemory creates a memory limiter. Call [Memory.Start] to enable
// background eviction of expired windows; without it stale entries are
// only replaced when their key is touched again.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:        time.Now,
		sweepEvery: 5 * time.Minute,
		stop:       make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i].windows = make(map[string]window)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the eviction goroutine. It exits when ctx is cancelled or
// [Memory.Close] is called.
func (m *Memory) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// Close stops the eviction goroutine. Safe to call more than once.
func (m *Memory) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Allow counts one request against the key's window.
func (m *Memory) Allow(_ context.Context, key Key, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	k := key.String()
	now := m.now()

	s := m.shardFor(k)
	s.mu.Lock()
	w := s.windows[k]
	if w.resetAt.IsZero() || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(cfg.Window)}
	}
	w.count++
	s.windows[k] = w
	s.mu.Unlock()

	res := Result{
		Allowed: w.count <= cfg.MaxRequests,
		Limit:   cfg.MaxRequests,
		ResetAt: w.resetAt,
	}
	if remaining := cfg.MaxRequests - w.count; remaining > 0 {
		res.Remaining = remaining
	}
	if !res.Allowed {
		res.RetryAfter = w.resetAt.Sub(now)
	}
	return res, nil
}

// Reset drops the key's window so the next request starts a fresh budget.
func (m *Memory) Reset(_ context.Context, key Key) error {
	k := key.String()
	s := m.shardFor(k)
	s.mu.Lock()
	delete(s.windows, k)
	s.mu.Unlock()
	return nil
}

func (m *Memory) shardFor(k string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return &m.shards[h.Sum32()%shardCount]
}

func (m *Memory) sweep() {
	now := m.now()
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
		s.mu.Unlock()
	}
}
