// Package cache provides the TTL-keyed store of upstream responses used by
// the gateway.
//
// Three stores implement the same contract:
//
//   - Memory: a mutex-guarded map with lazy expiry on read and an optional
//     janitor sweep
//   - Redis: JSON-encoded entries with a native key TTL
//   - Tiered: Memory in front of Redis, back-filling memory on Redis hits
//
// # Contract
//
// Get returns (entry, true) only while the entry is younger than its TTL.
// A key that was never set and a key whose entry expired are
// indistinguishable. Set overwrites unconditionally and restarts the age
// clock. Stores never return errors: backend failures are logged, counted
// and degrade to a miss (or a dropped write).
//
// # Basic Usage
//
//	store := cache.NewMemory()
//	key := cache.EntityKey(swapi.EntityPlanet, 7)
//
//	store.Set(ctx, key, &cache.Entry{Data: body, StatusCode: 200}, 5*time.Minute)
//
//	if entry, ok := store.Get(ctx, key); ok {
//		// use entry.Data
//	}
//
// # Metrics
//
//   - swapi_cache_hits_total{layer} - Cache hits by layer
//   - swapi_cache_misses_total{layer} - Cache misses by layer
//   - swapi_cache_expired_total{layer} - Entries found expired on read or sweep
//   - swapi_cache_entries{layer="memory"} - Entries held in memory
//   - swapi_cache_errors_total{operation} - Backend operation errors
package cache
