package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff.
	Multiplier float64

	// MaxRetryAfter caps how long an upstream Retry-After may stall a retry.
	MaxRetryAfter time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		MaxRetryAfter: 60 * time.Second,
	}
}

// retrier executes attempts with exponential backoff and jitter.
type retrier struct {
	config RetryConfig
	logger zerolog.Logger

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

func newRetrier(config RetryConfig, logger zerolog.Logger) *retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	return &retrier{
		config: config,
		logger: logger,
		sleep:  sleepContext,
		jitter: rand.Float64,
	}
}

// backoff returns the jittered delay (±20%) for the given base, capped at
// MaxDelay.
func (r *retrier) backoff(base time.Duration) time.Duration {
	d := time.Duration(float64(base) * (0.8 + r.jitter()*0.4))
	if r.config.MaxDelay > 0 && d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	return d
}

// do runs attempt until it succeeds, fails with a non-retryable class, or
// MaxAttempts is reached. Errors that are not *UpstreamError (context
// cancellation) end the loop immediately.
func (r *retrier) do(ctx context.Context, path string, attempt func() error) error {
	delay := r.config.BaseDelay

	for n := 1; ; n++ {
		err := attempt()
		if err == nil {
			if n > 1 {
				r.logger.Info().
					Str("path", path).
					Int("attempt", n).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) {
			return err
		}
		upstreamErr.Attempts = n

		if !upstreamErr.Class.Retryable() {
			return upstreamErr
		}

		if n >= r.config.MaxAttempts {
			retryExhaustedTotal.WithLabelValues(string(upstreamErr.Class)).Inc()
			r.logger.Warn().
				Str("path", path).
				Str("error_class", string(upstreamErr.Class)).
				Int("max_attempts", r.config.MaxAttempts).
				Msg("Retry attempts exhausted")

			return &UpstreamError{
				Class:      upstreamErr.Class,
				StatusCode: upstreamErr.StatusCode,
				Path:       path,
				Attempts:   n,
				RetryAfter: upstreamErr.RetryAfter,
				Err:        fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, n, upstreamErr.Err),
			}
		}

		wait := r.backoff(delay)
		if ra := upstreamErr.RetryAfter; ra > wait {
			if r.config.MaxRetryAfter > 0 && ra > r.config.MaxRetryAfter {
				ra = r.config.MaxRetryAfter
			}
			wait = ra
		}

		retriesTotal.WithLabelValues(string(upstreamErr.Class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(upstreamErr.Class)).Observe(wait.Seconds())

		r.logger.Debug().
			Str("path", path).
			Str("error_class", string(upstreamErr.Class)).
			Int("attempt", n).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		if err := r.sleep(ctx, wait); err != nil {
			r.logger.Warn().
				Str("path", path).
				Int("attempt", n).
				Msg("Context cancelled during retry backoff")
			return err
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
}

// parseRetryAfter reads a Retry-After header given either in seconds or
// as an HTTP date. Returns 0 when absent or unparseable.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
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
