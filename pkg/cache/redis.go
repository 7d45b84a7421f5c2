package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Compile-time interface check.
var _ Store = (*Redis)(nil)

// Redis is a Store backed by Redis. Entries are JSON-encoded and written
// with a key TTL equal to the entry TTL, so Redis reclaims them on its own.
type Redis struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed store.
func NewRedis(redisClient *redis.Client, logger zerolog.Logger) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{
		redis:  redisClient,
		logger: logger,
	}
}

// Get retrieves an entry. Redis errors and undecodable entries are logged
// and reported as a miss.
func (r *Redis) Get(ctx context.Context, key Key) (*Entry, bool) {
	cacheKey := key.String()

	data, err := r.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			CacheErrors.WithLabelValues("get").Inc()
			r.logger.Warn().Err(err).Str("key", cacheKey).Msg("Redis get failed")
		}
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		r.logger.Warn().Err(err).Str("key", cacheKey).Msg("Invalid cache entry")
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, false
	}

	// Key TTLs have millisecond resolution; the entry clock is authoritative.
	if entry.Expired(time.Now()) {
		CacheExpired.WithLabelValues(layerRedis).Inc()
		CacheMisses.WithLabelValues(layerRedis).Inc()
		return nil, false
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	return &entry, true
}

// Set stores an entry with the given TTL. Failures are logged and dropped.
func (r *Redis) Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) {
	if entry == nil || ttl <= 0 {
		return
	}

	cacheKey := key.String()

	stored := *entry
	stored.StoredAt = time.Now()
	stored.TTL = ttl

	data, err := json.Marshal(&stored)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		r.logger.Warn().Err(err).Str("key", cacheKey).Msg("Marshal cache entry failed")
		return
	}

	if err := r.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		r.logger.Warn().Err(err).Str("key", cacheKey).Msg("Redis set failed")
	}
}
