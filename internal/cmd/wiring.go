package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-gateway/pkg/cache"
	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/config"
	"github.com/Sternrassler/swapi-gateway/pkg/logging"
	"github.com/Sternrassler/swapi-gateway/pkg/query"
	"github.com/Sternrassler/swapi-gateway/pkg/ratelimit"
	"github.com/Sternrassler/swapi-gateway/pkg/resolver"
)

const janitorInterval = time.Minute

// gateway bundles the wired components shared by serve and query.
type gateway struct {
	client   *client.Client
	resolver *resolver.Resolver
	engine   *query.Engine
	redis    *redis.Client
}

// buildGateway wires cache, limiter, client, resolver and query engine.
// With a Redis URL the cache becomes memory-over-Redis and upstream
// throttling is shared through Redis.
func buildGateway(ctx context.Context, cfg *config.Config, opts ...client.Option) (*gateway, error) {
	logger := logging.NewLogger("wiring")

	memory := cache.NewMemory()
	memory.StartJanitor(ctx, janitorInterval)

	var (
		store       cache.Store = memory
		redisClient *redis.Client
	)
	if cfg.Cache.RedisURL != "" {
		rc, err := connectRedis(ctx, cfg.Cache.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		redisClient = rc
		store = cache.NewTiered(memory, cache.NewRedis(rc, logging.NewLogger("cache")))
		opts = append(opts, client.WithTracker(ratelimit.NewTracker(rc, logging.NewLogger("ratelimit"))))
	}

	bucket := ratelimit.NewBucket(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)

	c, err := client.New(cfg.ClientConfig(), store, bucket, opts...)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	return &gateway{
		client:   c,
		resolver: resolver.New(c, cfg.MaxConcurrency),
		engine:   query.NewEngine(c),
		redis:    redisClient,
	}, nil
}

func connectRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	rc := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")
	return rc, nil
}

// Close releases the Redis connection, if any.
func (g *gateway) Close() error {
	if g.redis == nil {
		return nil
	}
	if err := g.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
