package cache

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*Memory)(nil)

// Memory is an in-process Store. Expiry is checked lazily on read; Sweep
// (or the janitor) only reclaims memory and is never needed for
// correctness.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the entry for key if it has not expired.
func (m *Memory) Get(_ context.Context, key Key) (*Entry, bool) {
	k := key.String()

	m.mu.RLock()
	entry, ok := m.entries[k]
	m.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, false
	}

	if entry.Expired(m.now()) {
		m.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have replaced it.
		if m.entries[k] == entry {
			delete(m.entries, k)
			CacheEntries.WithLabelValues(layerMemory).Set(float64(len(m.entries)))
		}
		m.mu.Unlock()
		CacheExpired.WithLabelValues(layerMemory).Inc()
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, false
	}

	CacheHits.WithLabelValues(layerMemory).Inc()
	return entry.clone(), true
}

// Set stores a copy of entry under key, stamping StoredAt and TTL.
func (m *Memory) Set(_ context.Context, key Key, entry *Entry, ttl time.Duration) {
	if entry == nil || ttl <= 0 {
		return
	}

	stored := entry.clone()
	stored.StoredAt = m.now()
	stored.TTL = ttl

	m.mu.Lock()
	m.entries[key.String()] = stored
	CacheEntries.WithLabelValues(layerMemory).Set(float64(len(m.entries)))
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	if removed > 0 {
		CacheExpired.WithLabelValues(layerMemory).Add(float64(removed))
		CacheEntries.WithLabelValues(layerMemory).Set(float64(len(m.entries)))
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (m *Memory) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}
