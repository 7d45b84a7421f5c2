package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	// The upstream token bucket still bounds the actual request rate.
	MaxConcurrency int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
	}
}

// PageFetcher fetches one page of an upstream collection listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, t swapi.EntityType, page int) (*swapi.ListPage, error)
}

// BatchFetcher drains every page of a collection.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll returns the raw items of every page of the collection, in
// upstream order. The first page determines the page count; remaining
// pages are fetched in parallel. Any page failure fails the whole drain.
func (bf *BatchFetcher) FetchAll(ctx context.Context, t swapi.EntityType) ([]json.RawMessage, error) {
	start := time.Now()

	first, err := bf.fetcher.FetchPage(ctx, t, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page 1: %w", t.Path(), err)
	}

	totalPages, err := pageCount(first)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", t.Path(), err)
	}

	if totalPages <= 1 {
		bf.logger.Debug().
			Str("collection", t.Path()).
			Int("items", len(first.Results)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Results, nil
	}

	bf.logger.Debug().
		Str("collection", t.Path()).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	pages := make([][]json.RawMessage, totalPages)
	pages[0] = first.Results

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)
	for n := 2; n <= totalPages; n++ {
		g.Go(func() error {
			page, err := bf.fetcher.FetchPage(gctx, t, n)
			if err != nil {
				return fmt.Errorf("fetch %s page %d: %w", t.Path(), n, err)
			}
			pages[n-1] = page.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		bf.logger.Warn().
			Err(err).
			Str("collection", t.Path()).
			Msg("Page drain failed")
		return nil, err
	}

	items := make([]json.RawMessage, 0, first.Count)
	for _, results := range pages {
		items = append(items, results...)
	}

	if len(items) != first.Count {
		bf.logger.Warn().
			Str("collection", t.Path()).
			Int("count", first.Count).
			Int("items", len(items)).
			Msg("Upstream count does not match drained items")
	}

	bf.logger.Info().
		Str("collection", t.Path()).
		Int("pages", totalPages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

// pageCount derives the number of pages from the first page's count and
// size.
func pageCount(first *swapi.ListPage) (int, error) {
	if first.Count == 0 {
		return 1, nil
	}
	size := len(first.Results)
	if size == 0 {
		return 0, fmt.Errorf("%w: count %d but empty first page", swapi.ErrInvalidRecord, first.Count)
	}
	return (first.Count + size - 1) / size, nil
}
