package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_rate_limit_throttles_total",
		Help: "Total number of 429 responses recorded from the upstream",
	})

	blockedWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_rate_limit_blocked_waits_total",
		Help: "Total number of requests held back by a shared upstream block",
	})
)

// Tracker shares upstream throttle state through Redis.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a new throttle tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// GetState reads the shared state. A missing key yields an unblocked state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	state := &State{}

	blockedMillis, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("get blocked until: %w", err)
	default:
		state.BlockedUntil = time.UnixMilli(blockedMillis)
	}

	throttles, err := t.redis.Get(ctx, RedisKeyThrottles).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get throttles: %w", err)
	}
	state.Throttles = throttles

	return state, nil
}

// RecordThrottle stores a block of retryAfter, capped at MaxBlock. An
// existing longer block is kept.
func (t *Tracker) RecordThrottle(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	if retryAfter > MaxBlock {
		retryAfter = MaxBlock
	}

	until := t.now().Add(retryAfter)

	current, err := t.GetState(ctx)
	if err != nil {
		return err
	}

	pipe := t.redis.Pipeline()
	if until.After(current.BlockedUntil) {
		pipe.Set(ctx, RedisKeyBlockedUntil, until.UnixMilli(), retryAfter)
	}
	pipe.Incr(ctx, RedisKeyThrottles)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}

	throttlesTotal.Inc()
	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("blocked_until", until).
		Msg("Upstream throttled, holding requests")

	return nil
}

// Wait blocks while a shared upstream block is active. Redis failures are
// logged and treated as no block.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to read throttle state, continuing")
		return nil
	}

	wait := state.TimeUntilReset(t.now())
	if wait <= 0 {
		return nil
	}

	blockedWaitsTotal.Inc()
	t.logger.Debug().Dur("wait", wait).Msg("Waiting for upstream block to lift")
	return t.sleep(ctx, wait)
}
