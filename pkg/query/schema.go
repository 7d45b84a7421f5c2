package query

import (
	"sort"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

type sortKind int

const (
	sortText sortKind = iota
	sortNumeric
)

// schema lists what can be searched, filtered and sorted per entity type.
type schema struct {
	search      []string
	filters     map[string]struct{}
	sorts       map[string]sortKind
	defaultSort string

	// filmRefs selects the references a film holds for this type; nil when
	// the type cannot be restricted by film.
	filmRefs func(*swapi.Film) []swapi.Reference
}

func set(fields ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}

var schemas = map[swapi.EntityType]schema{
	swapi.EntityCharacter: {
		search:  []string{"name"},
		filters: set("gender", "eye_color", "hair_color", "skin_color"),
		sorts: map[string]sortKind{
			"name":       sortText,
			"height":     sortNumeric,
			"mass":       sortNumeric,
			"birth_year": sortText,
		},
		defaultSort: "name",
		filmRefs:    func(f *swapi.Film) []swapi.Reference { return f.Characters },
	},
	swapi.EntityPlanet: {
		search:  []string{"name"},
		filters: set("climate", "terrain"),
		sorts: map[string]sortKind{
			"name":       sortText,
			"population": sortNumeric,
			"diameter":   sortNumeric,
			"climate":    sortText,
		},
		defaultSort: "name",
		filmRefs:    func(f *swapi.Film) []swapi.Reference { return f.Planets },
	},
	swapi.EntityStarship: {
		search:  []string{"name", "model"},
		filters: set("starship_class", "manufacturer"),
		sorts: map[string]sortKind{
			"name":           sortText,
			"model":          sortText,
			"starship_class": sortText,
		},
		defaultSort: "name",
		filmRefs:    func(f *swapi.Film) []swapi.Reference { return f.Starships },
	},
	swapi.EntityFilm: {
		search:  []string{"title"},
		filters: set("director", "producer"),
		sorts: map[string]sortKind{
			"title":        sortText,
			"episode_id":   sortNumeric,
			"release_date": sortText,
		},
		defaultSort: "episode_id",
	},
}

// FilterFields returns the filterable fields of t, sorted.
func FilterFields(t swapi.EntityType) []string {
	return keys(schemas[t].filters)
}

// SortFields returns the sortable fields of t, sorted.
func SortFields(t swapi.EntityType) []string {
	return keys(schemas[t].sorts)
}

// DefaultSort returns the sort field used when none is given.
func DefaultSort(t swapi.EntityType) string {
	return schemas[t].defaultSort
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
