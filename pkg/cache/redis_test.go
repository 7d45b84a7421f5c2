package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, zerolog.Nop()), mr
}

func TestRedis_SetGet(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()
	key := EntityKey(swapi.EntityCharacter, 1)

	store.Set(ctx, key, &Entry{Data: []byte(`{"name":"Luke Skywalker"}`), StatusCode: 200}, time.Minute)

	got, ok := store.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `{"name":"Luke Skywalker"}`, string(got.Data))
	assert.Equal(t, time.Minute, got.TTL)

	assert.True(t, mr.Exists("swapi:people:1"))
	assert.Equal(t, time.Minute, mr.TTL("swapi:people:1"))
}

func TestRedis_ExpiredIsAbsent(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()
	key := EntityKey(swapi.EntityPlanet, 1)

	store.Set(ctx, key, &Entry{Data: []byte("x")}, time.Minute)
	mr.FastForward(time.Minute)

	_, ok := store.Get(ctx, key)
	assert.False(t, ok)
}

func TestRedis_NegativeEntry(t *testing.T) {
	store, _ := newTestRedis(t)
	ctx := context.Background()
	key := EntityKey(swapi.EntityPlanet, 999)

	store.Set(ctx, key, NotFoundEntry(), time.Minute)

	got, ok := store.Get(ctx, key)
	require.True(t, ok)
	assert.True(t, got.IsNotFound())
}

func TestRedis_CorruptEntryIsMiss(t *testing.T) {
	store, mr := newTestRedis(t)
	require.NoError(t, mr.Set("swapi:films:1", "not-json"))

	_, ok := store.Get(context.Background(), EntityKey(swapi.EntityFilm, 1))
	assert.False(t, ok)
}

func TestRedis_BackendDownIsMiss(t *testing.T) {
	store, mr := newTestRedis(t)
	mr.Close()

	ctx := context.Background()
	key := EntityKey(swapi.EntityFilm, 1)

	// Neither call may panic or block; both degrade silently.
	store.Set(ctx, key, &Entry{Data: []byte("x")}, time.Minute)
	_, ok := store.Get(ctx, key)
	assert.False(t, ok)
}

func TestTiered_BackfillsLocal(t *testing.T) {
	shared, _ := newTestRedis(t)
	local := NewMemory()
	tiered := NewTiered(local, shared)
	ctx := context.Background()
	key := EntityKey(swapi.EntityStarship, 10)

	shared.Set(ctx, key, &Entry{Data: []byte("falcon"), StatusCode: 200}, time.Minute)
	assert.Equal(t, 0, local.Len())

	got, ok := tiered.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "falcon", string(got.Data))
	assert.Equal(t, 1, local.Len(), "shared hit back-fills the local layer")

	localEntry, ok := local.Get(ctx, key)
	require.True(t, ok)
	assert.LessOrEqual(t, localEntry.TTL, time.Minute)
}

func TestTiered_SetWritesBoth(t *testing.T) {
	shared, mr := newTestRedis(t)
	local := NewMemory()
	tiered := NewTiered(local, shared)
	ctx := context.Background()

	tiered.Set(ctx, CollectionKey(swapi.EntityFilm), &Entry{Data: []byte("[]")}, time.Minute)

	assert.Equal(t, 1, local.Len())
	assert.True(t, mr.Exists("swapi:films:all"))
}
