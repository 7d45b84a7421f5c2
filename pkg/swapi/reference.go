// Package swapi defines the entity model of the Star Wars catalog: entity
// types, typed references between entities, the parsed records and their
// summary projections.
package swapi

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidReference is returned when a reference URL cannot be normalized.
var ErrInvalidReference = errors.New("invalid reference")

// EntityType names a kind of catalog resource.
type EntityType string

const (
	EntityCharacter EntityType = "character"
	EntityPlanet    EntityType = "planet"
	EntityStarship  EntityType = "starship"
	EntityFilm      EntityType = "film"

	// Species and vehicles only appear as references; they are never fetched.
	EntitySpecies EntityType = "species"
	EntityVehicle EntityType = "vehicle"
)

var collectionPaths = map[EntityType]string{
	EntityCharacter: "people",
	EntityPlanet:    "planets",
	EntityStarship:  "starships",
	EntityFilm:      "films",
	EntitySpecies:   "species",
	EntityVehicle:   "vehicles",
}

// EntityTypes lists the fetchable entity types.
func EntityTypes() []EntityType {
	return []EntityType{EntityCharacter, EntityPlanet, EntityStarship, EntityFilm}
}

// Path returns the upstream collection path segment ("people" for characters).
func (t EntityType) Path() string {
	return collectionPaths[t]
}

// Fetchable reports whether records of this type can be fetched upstream.
func (t EntityType) Fetchable() bool {
	switch t {
	case EntityCharacter, EntityPlanet, EntityStarship, EntityFilm:
		return true
	default:
		return false
	}
}

// ParseEntityType accepts both the entity name ("character") and the
// upstream collection name ("people").
func ParseEntityType(s string) (EntityType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, path := range collectionPaths {
		if s == string(t) || s == path {
			return t, nil
		}
	}
	if s == "characters" {
		return EntityCharacter, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Reference points at one resource instance, e.g. planet #7.
type Reference struct {
	Type EntityType `json:"type"`
	ID   int        `json:"id"`
}

// String returns "planet/7".
func (r Reference) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

// ParseReference normalizes an upstream resource URL such as
// "https://swapi.dev/api/planets/7/" into a Reference.
func ParseReference(raw string) (Reference, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}

	id, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil || id <= 0 {
		return Reference{}, fmt.Errorf("%w: no numeric id in %q", ErrInvalidReference, raw)
	}

	collection := segments[len(segments)-2]
	for t, path := range collectionPaths {
		if path == collection {
			return Reference{Type: t, ID: id}, nil
		}
	}
	return Reference{}, fmt.Errorf("%w: unknown collection %q in %q", ErrInvalidReference, collection, raw)
}

// ParseReferences normalizes a list of URLs, preserving order.
func ParseReferences(raws []string) ([]Reference, error) {
	refs := make([]Reference, 0, len(raws))
	for _, raw := range raws {
		ref, err := ParseReference(raw)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// IDs returns the numeric ids of refs with the given type.
func IDs(refs []Reference, t EntityType) map[int]struct{} {
	ids := make(map[int]struct{}, len(refs))
	for _, ref := range refs {
		if ref.Type == t {
			ids[ref.ID] = struct{}{}
		}
	}
	return ids
}
