package cache

import (
	"context"
	"time"
)

// Store is the cache contract shared by all backends.
type Store interface {
	// Get returns the entry for key while it is younger than its TTL.
	Get(ctx context.Context, key Key) (*Entry, bool)

	// Set stores entry under key for ttl, replacing any previous entry.
	Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration)
}
