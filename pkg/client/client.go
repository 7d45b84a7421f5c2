// Package client is the upstream gateway to the Star Wars API. It is the
// only component that talks to the network, and it owns the cache, the
// token bucket and the retry policy.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/swapi-gateway/pkg/cache"
	"github.com/Sternrassler/swapi-gateway/pkg/pagination"
	"github.com/Sternrassler/swapi-gateway/pkg/ratelimit"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_requests_total",
		Help: "Total upstream requests by collection and status",
	}, []string{"collection", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_request_duration_seconds",
		Help:    "Upstream request duration in seconds by collection",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"collection"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})

	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_gateway_lookups_total",
		Help: "Gateway lookups by collection and cache result",
	}, []string{"collection", "result"})
)

// Client is the upstream gateway.
type Client struct {
	httpClient *http.Client
	cache      cache.Store
	bucket     *ratelimit.Bucket
	tracker    *ratelimit.Tracker
	retry      *retrier
	pages      *pagination.BatchFetcher
	flight     singleflight.Group
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. "https://swapi.dev/api".
	BaseURL string

	// UserAgent is sent with every upstream request.
	UserAgent string

	// Timeout bounds each individual upstream attempt.
	Timeout time.Duration

	// CacheTTL is the lifetime of cached responses, negative ones included.
	CacheTTL time.Duration

	// Retry configures backoff for retryable failures.
	Retry RetryConfig

	// MaxConcurrency bounds parallel page fetches when draining collections.
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://swapi.dev/api",
		UserAgent:      "swapi-gateway/1.0",
		Timeout:        10 * time.Second,
		CacheTTL:       5 * time.Minute,
		Retry:          DefaultRetryConfig(),
		MaxConcurrency: pagination.DefaultConfig().MaxConcurrency,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTracker shares upstream throttling across instances through Redis.
func WithTracker(tracker *ratelimit.Tracker) Option {
	return func(c *Client) {
		c.tracker = tracker
	}
}

// New creates a gateway. The store and bucket are owned by the caller and
// may be shared by several gateways.
func New(cfg Config, store cache.Store, bucket *ratelimit.Bucket, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if bucket == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive (got %s)", cfg.CacheTTL)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "swapi-client").Logger()

	c := &Client{
		httpClient: &http.Client{},
		cache:      store,
		bucket:     bucket,
		retry:      newRetrier(cfg.Retry, logger),
		config:     cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pages = pagination.NewBatchFetcher(c, pagination.Config{MaxConcurrency: cfg.MaxConcurrency})

	return c, nil
}

// Fetch returns one record by type and id.
func (c *Client) Fetch(ctx context.Context, t swapi.EntityType, id int) (swapi.Record, error) {
	if !t.Fetchable() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEntity, t)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: %s id %d", swapi.ErrInvalidReference, t, id)
	}

	path := fmt.Sprintf("/%s/%d/", t.Path(), id)
	v, err := c.load(ctx, cache.EntityKey(t, id), path, func(data []byte) (any, error) {
		rec, err := swapi.Decode(t, data)
		if err != nil {
			return nil, err
		}
		if rec.Ref().ID != id {
			return nil, fmt.Errorf("%w: asked for %s/%d, got %s", swapi.ErrInvalidRecord, t, id, rec.Ref())
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(swapi.Record), nil
}

// FetchByReference returns the record a reference points at.
func (c *Client) FetchByReference(ctx context.Context, ref swapi.Reference) (swapi.Record, error) {
	return c.Fetch(ctx, ref.Type, ref.ID)
}

// FetchByURL normalizes an upstream resource URL and fetches it. An
// unparseable URL is an InvalidResponse failure.
func (c *Client) FetchByURL(ctx context.Context, rawURL string) (swapi.Record, error) {
	ref, err := swapi.ParseReference(rawURL)
	if err != nil {
		upstreamErr := &UpstreamError{Class: ClassInvalidResponse, Path: rawURL, Err: err}
		c.logInvalid(upstreamErr)
		return nil, upstreamErr
	}
	return c.FetchByReference(ctx, ref)
}

// Character fetches one character.
func (c *Client) Character(ctx context.Context, id int) (*swapi.Character, error) {
	rec, err := c.Fetch(ctx, swapi.EntityCharacter, id)
	if err != nil {
		return nil, err
	}
	return rec.(*swapi.Character), nil
}

// Planet fetches one planet.
func (c *Client) Planet(ctx context.Context, id int) (*swapi.Planet, error) {
	rec, err := c.Fetch(ctx, swapi.EntityPlanet, id)
	if err != nil {
		return nil, err
	}
	return rec.(*swapi.Planet), nil
}

// Starship fetches one starship.
func (c *Client) Starship(ctx context.Context, id int) (*swapi.Starship, error) {
	rec, err := c.Fetch(ctx, swapi.EntityStarship, id)
	if err != nil {
		return nil, err
	}
	return rec.(*swapi.Starship), nil
}

// Film fetches one film.
func (c *Client) Film(ctx context.Context, id int) (*swapi.Film, error) {
	rec, err := c.Fetch(ctx, swapi.EntityFilm, id)
	if err != nil {
		return nil, err
	}
	return rec.(*swapi.Film), nil
}

// FetchPage fetches one page of a collection listing. It implements
// pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, t swapi.EntityType, page int) (*swapi.ListPage, error) {
	if !t.Fetchable() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEntity, t)
	}
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}

	path := fmt.Sprintf("/%s/?page=%d", t.Path(), page)
	v, err := c.load(ctx, cache.PageKey(t, page), path, func(data []byte) (any, error) {
		return swapi.DecodeListPage(data)
	})
	if err != nil {
		return nil, err
	}
	return v.(*swapi.ListPage), nil
}

// FetchAll returns every record of a collection in upstream order. The
// drained collection is cached as one entry, and every item also warms
// its per-entity cache entry.
func (c *Client) FetchAll(ctx context.Context, t swapi.EntityType) ([]swapi.Record, error) {
	if !t.Fetchable() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEntity, t)
	}

	key := cache.CollectionKey(t)
	decode := func(data []byte) ([]swapi.Record, error) {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: collection: %v", swapi.ErrInvalidRecord, err)
		}
		return decodeItems(t, items)
	}

	if entry, ok := c.cache.Get(ctx, key); ok {
		lookupsTotal.WithLabelValues(t.Path(), "hit").Inc()
		if records, err := decode(entry.Data); err == nil {
			return records, nil
		}
		c.logger.Warn().Str("key", key.String()).Msg("Discarding undecodable collection entry")
	}
	lookupsTotal.WithLabelValues(t.Path(), "miss").Inc()

	v, err, _ := c.share(ctx, key.String(), func(ctx context.Context) (any, error) {
		items, err := c.pages.FetchAll(ctx, t)
		if err != nil {
			return nil, err
		}

		records, err := decodeItems(t, items)
		if err != nil {
			upstreamErr := &UpstreamError{Class: ClassInvalidResponse, StatusCode: http.StatusOK, Path: "/" + t.Path() + "/", Attempts: 1, Err: err}
			c.logInvalid(upstreamErr)
			return nil, upstreamErr
		}

		for i, rec := range records {
			c.cache.Set(ctx, cache.EntityKey(t, rec.Ref().ID), &cache.Entry{Data: items[i], StatusCode: http.StatusOK}, c.config.CacheTTL)
		}

		data, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encode collection: %w", err)
		}
		c.cache.Set(ctx, key, &cache.Entry{Data: data, StatusCode: http.StatusOK}, c.config.CacheTTL)

		c.logger.Debug().
			Str("collection", t.Path()).
			Int("items", len(records)).
			Msg("Cached collection")
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]swapi.Record), nil
}

func decodeItems(t swapi.EntityType, items []json.RawMessage) ([]swapi.Record, error) {
	records := make([]swapi.Record, 0, len(items))
	for i, item := range items {
		rec, err := swapi.Decode(t, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// load is the shared read path: cache, then a de-duplicated upstream fetch.
// decode validates the body; only bodies that decode are cached.
func (c *Client) load(ctx context.Context, key cache.Key, path string, decode func([]byte) (any, error)) (any, error) {
	collection := key.Type.Path()

	if entry, ok := c.cache.Get(ctx, key); ok {
		if entry.IsNotFound() {
			lookupsTotal.WithLabelValues(collection, "negative_hit").Inc()
			c.logger.Debug().Str("key", key.String()).Msg("Negative cache hit")
			return nil, &UpstreamError{Class: ClassNotFound, StatusCode: http.StatusNotFound, Path: path, Err: ErrNotFound}
		}
		if v, err := decode(entry.Data); err == nil {
			lookupsTotal.WithLabelValues(collection, "hit").Inc()
			c.logger.Debug().Str("key", key.String()).Msg("Cache hit")
			return v, nil
		}
		c.logger.Warn().Str("key", key.String()).Msg("Discarding undecodable cache entry")
	}
	lookupsTotal.WithLabelValues(collection, "miss").Inc()

	v, err, shared := c.share(ctx, key.String(), func(ctx context.Context) (any, error) {
		entry, err := c.fetchUpstream(ctx, collection, path)
		if err != nil {
			if IsNotFound(err) {
				c.cache.Set(ctx, key, cache.NotFoundEntry(), c.config.CacheTTL)
			}
			return nil, err
		}

		v, err := decode(entry.Data)
		if err != nil {
			upstreamErr := &UpstreamError{Class: ClassInvalidResponse, StatusCode: entry.StatusCode, Path: path, Attempts: 1, Err: err}
			c.logInvalid(upstreamErr)
			return nil, upstreamErr
		}

		c.cache.Set(ctx, key, entry, c.config.CacheTTL)
		return v, nil
	})
	if shared {
		c.logger.Debug().Str("key", key.String()).Msg("Joined in-flight fetch")
	}
	return v, err
}

// share runs fn once per key across concurrent callers. fn gets a context
// that keeps the first caller's values but not its cancellation, so a caller
// giving up never fails the others; each caller still returns as soon as its
// own ctx is done. Attempts are bounded by Config.Timeout.
func (c *Client) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	if err := ctx.Err(); err != nil {
		return nil, err, false
	}

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), false
	}
}

// fetchUpstream performs the GET with retries and returns the 200 body.
func (c *Client) fetchUpstream(ctx context.Context, collection, path string) (*cache.Entry, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	}()

	var entry *cache.Entry
	err := c.retry.do(ctx, path, func() error {
		var err error
		entry, err = c.attempt(ctx, collection, path)
		return err
	})
	if err != nil {
		if class := ClassOf(err); class != "" {
			errorsTotal.WithLabelValues(string(class)).Inc()
			if class == ClassInvalidResponse {
				c.logInvalid(err)
			}
		}
		return nil, err
	}
	return entry, nil
}

// attempt performs a single upstream request. It waits for any shared
// upstream block and for a token, then bounds the request itself with the
// per-attempt timeout.
func (c *Client) attempt(ctx context.Context, collection, path string) (*cache.Entry, error) {
	if c.tracker != nil {
		if err := c.tracker.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.bucket.Acquire(ctx); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, &UpstreamError{Class: ClassInvalidResponse, Path: path, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("path", path).Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, collection, path, err)
	}
	defer resp.Body.Close()

	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		return nil, c.transportError(ctx, collection, path, err)
	}

	requestsTotal.WithLabelValues(collection, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusOK:
		return entry, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, &UpstreamError{Class: ClassNotFound, StatusCode: resp.StatusCode, Path: path, Err: ErrNotFound}

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header, time.Now())
		if c.tracker != nil {
			if err := c.tracker.RecordThrottle(ctx, retryAfter); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record upstream throttle")
			}
		}
		c.logger.Warn().
			Str("path", path).
			Dur("retry_after", retryAfter).
			Msg("Upstream rate limited request")
		return nil, &UpstreamError{Class: ClassRateLimited, StatusCode: resp.StatusCode, Path: path, RetryAfter: retryAfter, Err: errors.New(resp.Status)}

	case resp.StatusCode >= 500:
		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("Upstream server error")
		return nil, &UpstreamError{Class: ClassTransient, StatusCode: resp.StatusCode, Path: path, Err: errors.New(resp.Status)}

	default:
		return nil, &UpstreamError{Class: ClassInvalidResponse, StatusCode: resp.StatusCode, Path: path, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
}

// transportError classifies a failed round trip. A cancelled caller
// context is returned as is so the retry loop stops.
func (c *Client) transportError(ctx context.Context, collection, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	class := ClassTransient
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		class = ClassTimeout
	}

	requestsTotal.WithLabelValues(collection, string(class)).Inc()
	c.logger.Warn().
		Err(err).
		Str("path", path).
		Str("error_class", string(class)).
		Msg("Upstream request failed")

	return &UpstreamError{Class: class, Path: path, Err: err}
}

func (c *Client) logInvalid(err error) {
	c.logger.Error().
		Err(err).
		Str("error_class", string(ClassInvalidResponse)).
		Msg("Invalid upstream response")
}
