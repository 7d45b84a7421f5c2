package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/swapi-gateway/pkg/query"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// parseQueryParams reads page, search, sort_by, order, film_id and the
// type's filter fields. Unknown parameters are ignored.
func parseQueryParams(t swapi.EntityType, values url.Values) (query.Params, error) {
	p := query.Params{
		Type:   t,
		Search: values.Get("search"),
		SortBy: values.Get("sort_by"),
		Order:  query.Order(values.Get("order")),
	}

	var err error
	if p.Page, err = intParam(values, "page", 1); err != nil {
		return query.Params{}, err
	}
	if p.FilmID, err = intParam(values, "film_id", 0); err != nil {
		return query.Params{}, err
	}

	for _, field := range query.FilterFields(t) {
		if v := values.Get(field); v != "" {
			if p.Filters == nil {
				p.Filters = make(map[string]string)
			}
			p.Filters[field] = v
		}
	}
	return p, nil
}

func intParam(values url.Values, name string, def int) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", query.ErrInvalidQuery, name, raw)
	}
	return n, nil
}

func boolParam(values url.Values, name string) (bool, error) {
	raw := values.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", query.ErrInvalidQuery, name, raw)
	}
	return b, nil
}

func pathID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: id must be a positive integer, got %q", query.ErrInvalidQuery, raw)
	}
	return id, nil
}
