package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in process memory.
// State is lost on restart and not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Allow(ctx context.Context, k string, window time.Duration) (bool, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[k]
	if !ok || e.window != window {
		e = &memoryEntry{limiter: rate.NewLimiter(rate.Every(window), 1), window: window}
		m.entries[k] = e
	}
	e.lastSeen = now
	if e.limiter.AllowN(now, 1) {
		return true, 0, nil
	}
	r := e.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait, nil
}

// Sweep drops buckets idle for longer than their window; they would be full anyway.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) > e.window {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
