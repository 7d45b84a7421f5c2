// Package ratelimit paces outbound requests to the Star Wars API.
//
// Bucket is a token bucket shared by every in-process caller. Tracker
// records upstream throttling (429 with Retry-After) in Redis so that
// every gateway instance backs off together.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Defaults for the upstream token bucket.
const (
	DefaultCapacity   = 5
	DefaultRefillRate = 5.0 // tokens per second
)

// Prometheus metrics for request pacing.
var (
	bucketWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapi_ratelimit_wait_seconds",
		Help:    "Time callers spent waiting for an upstream token",
		Buckets: []float64{0, .01, .05, .1, .2, .5, 1, 2, 5},
	})

	bucketTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_ratelimit_tokens",
		Help: "Tokens left in the upstream bucket after the last acquisition",
	})
)

// Bucket is a token bucket. It holds at most capacity tokens and refills
// continuously at refillRate tokens per second. Refill is computed lazily
// from the elapsed time on each acquisition.
//
// Waiters are not served in FIFO order.
type Bucket struct {
	mu       sync.Mutex
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) {
		b.now = now
	}
}

// WithSleep overrides how Acquire waits. The function must return
// ctx.Err() if ctx ends before d has elapsed.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Bucket) {
		b.sleep = sleep
	}
}

// NewBucket creates a full bucket. It panics if capacity < 1 or
// refillRate <= 0.
func NewBucket(capacity int, refillRate float64, opts ...Option) *Bucket {
	if capacity < 1 {
		panic("ratelimit: capacity must be at least 1")
	}
	if refillRate <= 0 {
		panic("ratelimit: refill rate must be positive")
	}

	b := &Bucket{
		capacity: float64(capacity),
		rate:     refillRate,
		tokens:   float64(capacity),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.last = b.now()
	return b
}

// Acquire takes one token, waiting for a refill if the bucket is empty.
// It fails only when ctx is cancelled or its deadline passes.
func (b *Bucket) Acquire(ctx context.Context) error {
	start := b.now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := b.take()
		if wait <= 0 {
			bucketWaitSeconds.Observe(b.now().Sub(start).Seconds())
			return nil
		}

		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Tokens returns the current token count after refill.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.now())
	return b.tokens
}

// take consumes a token if one is available and returns zero, or returns
// how long until the next token arrives.
func (b *Bucket) take() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.now())
	if b.tokens >= 1 {
		b.tokens--
		bucketTokens.Set(b.tokens)
		return 0
	}

	missing := 1 - b.tokens
	wait := time.Duration(missing / b.rate * float64(time.Second))
	if wait <= 0 {
		wait = time.Nanosecond
	}
	return wait
}

// refill must be called with mu held.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
