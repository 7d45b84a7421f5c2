// Package resolver turns reference lists into ordered records, fetching
// them concurrently through the gateway.
package resolver

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

var (
	fanOutSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapi_resolver_references",
		Help:    "Number of references per resolution",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_resolver_dropped_total",
		Help: "References dropped because the upstream no longer has them",
	})
)

// DefaultMaxConcurrency bounds in-flight fetches per resolution.
const DefaultMaxConcurrency = 8

// Fetcher is the part of the gateway the resolver needs.
type Fetcher interface {
	Fetch(ctx context.Context, t swapi.EntityType, id int) (swapi.Record, error)
	FetchByReference(ctx context.Context, ref swapi.Reference) (swapi.Record, error)
}

// Resolver resolves reference lists.
type Resolver struct {
	gateway        Fetcher
	maxConcurrency int
	logger         zerolog.Logger
}

// New creates a resolver. maxConcurrency <= 0 selects the default.
func New(gateway Fetcher, maxConcurrency int) *Resolver {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Resolver{
		gateway:        gateway,
		maxConcurrency: maxConcurrency,
		logger:         log.With().Str("component", "resolver").Logger(),
	}
}

// outcome is the per-reference result slot.
type outcome struct {
	record swapi.Record
	absent bool
}

// Resolve fetches every reference and returns the records in input order.
// References the upstream reports as NotFound are dropped. Any other
// failure fails the whole resolution and cancels the remaining fetches.
func (r *Resolver) Resolve(ctx context.Context, refs []swapi.Reference) ([]swapi.Record, error) {
	fanOutSize.Observe(float64(len(refs)))
	if len(refs) == 0 {
		return []swapi.Record{}, nil
	}

	outcomes := make([]outcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			rec, err := r.gateway.FetchByReference(gctx, ref)
			switch {
			case err == nil:
				outcomes[i].record = rec
			case client.IsNotFound(err):
				outcomes[i].absent = true
			default:
				return fmt.Errorf("resolve %s: %w", ref, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn().
			Err(err).
			Int("references", len(refs)).
			Msg("Resolution failed")
		return nil, err
	}

	records := make([]swapi.Record, 0, len(refs))
	for i, o := range outcomes {
		if o.absent {
			droppedTotal.Inc()
			r.logger.Debug().
				Stringer("reference", refs[i]).
				Msg("Dropping reference to missing resource")
			continue
		}
		records = append(records, o.record)
	}
	return records, nil
}

// summaries resolves refs and projects each record with summary.
func summaries[T swapi.Record, S any](ctx context.Context, r *Resolver, refs []swapi.Reference, summary func(T) S) ([]S, error) {
	records, err := r.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	out := make([]S, 0, len(records))
	for _, rec := range records {
		typed, ok := rec.(T)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected record %s", swapi.ErrInvalidRecord, rec.Ref())
		}
		out = append(out, summary(typed))
	}
	return out, nil
}
