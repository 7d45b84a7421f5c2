// Package query answers paginated, searchable, filterable and sortable
// queries over a fully materialized collection.
package query

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// ErrInvalidQuery is returned for unknown types, fields or orders.
var ErrInvalidQuery = errors.New("invalid query")

// DefaultPageSize is the number of results per page.
const DefaultPageSize = 10

var queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swapi_queries_total",
	Help: "Total collection queries by collection and outcome",
}, []string{"collection", "outcome"})

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Params describes one query.
type Params struct {
	Type swapi.EntityType

	// Page is 1-based; values below 1 are treated as 1.
	Page int

	// PageSize defaults to DefaultPageSize.
	PageSize int

	// Search is matched case-insensitively as a substring.
	Search string

	// Filters are exact, case-sensitive and ANDed.
	Filters map[string]string

	SortBy string
	Order  Order

	// FilmID restricts characters, planets and starships to those the
	// film references. Zero means no restriction.
	FilmID int
}

// Page is one page of query results.
type Page struct {
	Results      []any `json:"results"`
	Count        int   `json:"count"`
	Page         int   `json:"page"`
	TotalPages   int   `json:"total_pages"`
	NextPage     *int  `json:"next_page"`
	PreviousPage *int  `json:"previous_page"`
}

// Source provides materialized collections. The gateway implements it.
type Source interface {
	FetchAll(ctx context.Context, t swapi.EntityType) ([]swapi.Record, error)
	Fetch(ctx context.Context, t swapi.EntityType, id int) (swapi.Record, error)
}

// Engine runs queries against a Source.
type Engine struct {
	source Source
	logger zerolog.Logger
}

// NewEngine creates a query engine.
func NewEngine(source Source) *Engine {
	return &Engine{
		source: source,
		logger: log.With().Str("component", "query").Logger(),
	}
}

// Query runs p. Gateway failures are returned unchanged.
func (e *Engine) Query(ctx context.Context, p Params) (*Page, error) {
	s, err := p.normalize()
	if err != nil {
		queriesTotal.WithLabelValues(p.Type.Path(), "invalid").Inc()
		return nil, err
	}

	records, err := e.source.FetchAll(ctx, p.Type)
	if err != nil {
		queriesTotal.WithLabelValues(p.Type.Path(), "error").Inc()
		return nil, err
	}

	var inFilm map[int]struct{}
	if p.FilmID > 0 {
		rec, err := e.source.Fetch(ctx, swapi.EntityFilm, p.FilmID)
		if err != nil {
			queriesTotal.WithLabelValues(p.Type.Path(), "error").Inc()
			return nil, err
		}
		film, ok := rec.(*swapi.Film)
		if !ok {
			return nil, fmt.Errorf("%w: film %d", swapi.ErrInvalidRecord, p.FilmID)
		}
		inFilm = swapi.IDs(s.filmRefs(film), p.Type)
	}

	// Never reorder the source slice; it may be shared with other callers.
	matched := make([]swapi.Record, 0, len(records))
	for _, rec := range records {
		if inFilm != nil {
			if _, ok := inFilm[rec.Ref().ID]; !ok {
				continue
			}
		}
		if !matchesSearch(rec, s.search, p.Search) || !matchesFilters(rec, p.Filters) {
			continue
		}
		matched = append(matched, rec)
	}

	sortRecords(matched, p.SortBy, s.sorts[p.SortBy], p.Order)

	page := paginate(matched, p.Page, p.PageSize)
	queriesTotal.WithLabelValues(p.Type.Path(), "ok").Inc()

	e.logger.Debug().
		Str("collection", p.Type.Path()).
		Int("total", len(records)).
		Int("matched", page.Count).
		Int("page", page.Page).
		Msg("Query answered")

	return page, nil
}

// normalize validates p against its type's schema and fills defaults.
func (p *Params) normalize() (schema, error) {
	s, ok := schemas[p.Type]
	if !ok {
		return schema{}, fmt.Errorf("%w: unknown entity type %q", ErrInvalidQuery, p.Type)
	}

	for field := range p.Filters {
		if _, ok := s.filters[field]; !ok {
			return schema{}, fmt.Errorf("%w: cannot filter %s by %q", ErrInvalidQuery, p.Type.Path(), field)
		}
	}

	if p.SortBy == "" {
		p.SortBy = s.defaultSort
	}
	if _, ok := s.sorts[p.SortBy]; !ok {
		return schema{}, fmt.Errorf("%w: cannot sort %s by %q", ErrInvalidQuery, p.Type.Path(), p.SortBy)
	}

	switch p.Order {
	case "":
		p.Order = OrderAsc
	case OrderAsc, OrderDesc:
	default:
		return schema{}, fmt.Errorf("%w: order must be asc or desc, got %q", ErrInvalidQuery, p.Order)
	}

	if p.FilmID < 0 {
		return schema{}, fmt.Errorf("%w: film id %d", ErrInvalidQuery, p.FilmID)
	}
	if p.FilmID > 0 && s.filmRefs == nil {
		return schema{}, fmt.Errorf("%w: %s cannot be restricted by film", ErrInvalidQuery, p.Type.Path())
	}

	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return s, nil
}

func matchesSearch(rec swapi.Record, fields []string, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range fields {
		if v, ok := rec.Field(field); ok && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(rec swapi.Record, filters map[string]string) bool {
	for field, want := range filters {
		if v, ok := rec.Field(field); !ok || v != want {
			return false
		}
	}
	return true
}

// sortKey is a precomputed sort value. Numeric fields that do not parse
// (e.g. "unknown") have valid=false and sort last in either order.
type sortKey struct {
	text  string
	num   float64
	valid bool
}

func keyFor(rec swapi.Record, field string, kind sortKind) sortKey {
	v, _ := rec.Field(field)
	if kind == sortText {
		return sortKey{text: strings.ToLower(v), valid: true}
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
	if err != nil || math.IsNaN(n) {
		return sortKey{}
	}
	return sortKey{num: n, valid: true}
}

// sortRecords sorts in place, stably, so ties keep upstream order.
func sortRecords(records []swapi.Record, field string, kind sortKind, order Order) {
	type keyed struct {
		rec swapi.Record
		key sortKey
	}
	items := make([]keyed, len(records))
	for i, rec := range records {
		items[i] = keyed{rec: rec, key: keyFor(rec, field, kind)}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case !a.key.valid && !b.key.valid:
			return 0
		case !a.key.valid:
			return 1
		case !b.key.valid:
			return -1
		}

		var c int
		if kind == sortNumeric {
			c = cmp.Compare(a.key.num, b.key.num)
		} else {
			c = strings.Compare(a.key.text, b.key.text)
		}
		if order == OrderDesc {
			c = -c
		}
		return c
	})

	for i := range items {
		records[i] = items[i].rec
	}
}

func paginate(records []swapi.Record, page, size int) *Page {
	count := len(records)
	totalPages := count / size
	if count%size != 0 || count == 0 {
		totalPages++
	}

	// page is checked against totalPages before multiplying so huge page
	// numbers cannot wrap around.
	results := []any{}
	if page <= totalPages && count > 0 {
		start := (page - 1) * size
		end := start + min(size, count-start)
		for _, rec := range records[start:end] {
			results = append(results, rec.Summary())
		}
	}

	p := &Page{
		Results:    results,
		Count:      count,
		Page:       page,
		TotalPages: totalPages,
	}
	if page < totalPages {
		next := page + 1
		p.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		p.PreviousPage = &prev
	}
	return p
}
