package cache

import (
	"context"
	"time"
)

// Compile-time interface check.
var _ Store = (*Tiered)(nil)

// Tiered layers a fast local store in front of a shared one. Reads try the
// local store first; a shared hit back-fills the local store with the
// entry's remaining lifetime so both layers expire together.
type Tiered struct {
	local  Store
	shared Store
}

// NewTiered creates a two-layer store.
func NewTiered(local, shared Store) *Tiered {
	return &Tiered{local: local, shared: shared}
}

// Get reads through local then shared.
func (t *Tiered) Get(ctx context.Context, key Key) (*Entry, bool) {
	if entry, ok := t.local.Get(ctx, key); ok {
		return entry, true
	}

	entry, ok := t.shared.Get(ctx, key)
	if !ok {
		return nil, false
	}

	if remaining := entry.Remaining(time.Now()); remaining > 0 {
		t.local.Set(ctx, key, entry, remaining)
	}
	return entry, true
}

// Set writes both layers.
func (t *Tiered) Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) {
	t.local.Set(ctx, key, entry, ttl)
	t.shared.Set(ctx, key, entry, ttl)
}
