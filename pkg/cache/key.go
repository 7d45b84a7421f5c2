package cache

import (
	"fmt"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// Key identifies a cached upstream response.
type Key struct {
	// Type is the entity collection
	Type swapi.EntityType

	// ID is the resource id for single-resource keys
	ID int

	// Page is the listing page for page keys
	Page int

	// All marks the fully drained collection
	All bool
}

// EntityKey is the key of a single resource.
func EntityKey(t swapi.EntityType, id int) Key {
	return Key{Type: t, ID: id}
}

// PageKey is the key of one upstream listing page.
func PageKey(t swapi.EntityType, page int) Key {
	return Key{Type: t, Page: page}
}

// CollectionKey is the key of a fully drained collection.
func CollectionKey(t swapi.EntityType) Key {
	return Key{Type: t, All: true}
}

// String generates a deterministic cache key string.
//
// Examples:
//
//	swapi:people:1
//	swapi:planets:page=2
//	swapi:films:all
func (k Key) String() string {
	switch {
	case k.All:
		return fmt.Sprintf("swapi:%s:all", k.Type.Path())
	case k.Page > 0:
		return fmt.Sprintf("swapi:%s:page=%d", k.Type.Path(), k.Page)
	default:
		return fmt.Sprintf("swapi:%s:%d", k.Type.Path(), k.ID)
	}
}
