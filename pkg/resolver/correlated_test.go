package resolver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/swapi-gateway/internal/testutil"
	"github.com/Sternrassler/swapi-gateway/pkg/cache"
	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/ratelimit"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// newCatalogResolver wires a real gateway to the mock upstream.
func newCatalogResolver(t *testing.T, mutate ...func(*client.Config)) (*Resolver, *testutil.MockSWAPI) {
	t.Helper()

	mock := testutil.NewMockSWAPI()
	t.Cleanup(mock.Close)
	mock.LoadCatalog(testutil.DefaultCatalog())

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.Retry.BaseDelay = time.Millisecond
	for _, fn := range mutate {
		fn(&cfg)
	}

	gw, err := client.New(cfg, cache.NewMemory(), ratelimit.NewBucket(100, 1000))
	require.NoError(t, err)
	return New(gw, 4), mock
}

func TestPlanetResidents(t *testing.T) {
	r, _ := newCatalogResolver(t)

	residents, err := r.PlanetResidents(context.Background(), 1)
	require.NoError(t, err)

	var ids []int
	for _, c := range residents {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{1, 2, 4, 6, 7, 8, 9, 11, 43}, ids)
	assert.Equal(t, "Luke Skywalker", residents[0].Name)
}

func TestFilmCorrelations(t *testing.T) {
	r, _ := newCatalogResolver(t)
	ctx := context.Background()

	characters, err := r.FilmCharacters(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, characters, 8)

	planets, err := r.FilmPlanets(ctx, 2)
	require.NoError(t, err)
	require.Len(t, planets, 2)
	assert.Equal(t, "Hoth", planets[0].Name)
	assert.Equal(t, "Dagobah", planets[1].Name)

	ships, err := r.FilmStarships(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ships, 5)
	assert.Equal(t, "CR90 corvette", ships[0].Name)
}

func TestCharacterCorrelations(t *testing.T) {
	r, _ := newCatalogResolver(t)
	ctx := context.Background()

	films, err := r.CharacterFilms(ctx, 1)
	require.NoError(t, err)
	require.Len(t, films, 2)
	assert.Equal(t, "A New Hope", films[0].Title)
	assert.Equal(t, 5, films[1].EpisodeID)

	ships, err := r.CharacterStarships(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ships, 1)
	assert.Equal(t, "X-wing", ships[0].Name)
}

func TestStarshipCorrelations(t *testing.T) {
	r, _ := newCatalogResolver(t)
	ctx := context.Background()

	pilots, err := r.StarshipPilots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pilots, 2)
	assert.Equal(t, "Chewbacca", pilots[0].Name)
	assert.Equal(t, "Han Solo", pilots[1].Name)

	none, err := r.StarshipPilots(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)

	films, err := r.StarshipFilms(ctx, 13)
	require.NoError(t, err)
	require.Len(t, films, 1)

	planetFilms, err := r.PlanetFilms(ctx, 4)
	require.NoError(t, err)
	require.Len(t, planetFilms, 1)
	assert.Equal(t, "The Empire Strikes Back", planetFilms[0].Title)
}

func TestCharacterWithHomeworld(t *testing.T) {
	r, _ := newCatalogResolver(t)
	ctx := context.Background()

	luke, err := r.CharacterWithHomeworld(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, luke.HomeworldPlanet)
	assert.Equal(t, "Tatooine", luke.HomeworldPlanet.Name)

	data, err := json.Marshal(luke)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"Luke Skywalker"`)
	assert.Contains(t, string(data), `"homeworld_planet"`)

	// R2-D2's homeworld (Naboo) is not in the mock catalog.
	r2, err := r.CharacterWithHomeworld(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, r2.HomeworldPlanet)
}

func TestCorrelated_MissingParentIsNotFound(t *testing.T) {
	r, _ := newCatalogResolver(t)

	_, err := r.FilmCharacters(context.Background(), 99)
	assert.True(t, client.IsNotFound(err))
}

func TestCorrelated_ExhaustedTimeoutFailsWhole(t *testing.T) {
	r, mock := newCatalogResolver(t, func(c *client.Config) { c.Timeout = 30 * time.Millisecond })

	// Starship 10 has pilots 13 and 14; pilot 14 never answers in time.
	han := testutil.DefaultCatalog().Characters[13].JSON()
	mock.SetResponses("/people/14/", testutil.NewSlowResponse(han, time.Second))

	_, err := r.StarshipPilots(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, client.ClassTimeout, client.ClassOf(err))
	assert.ErrorIs(t, err, client.ErrRetryExhausted)
	assert.Equal(t, 3, mock.RequestCount("/people/14/"))
}

func TestResolve_SharedReferencesFetchedOnce(t *testing.T) {
	r, mock := newCatalogResolver(t)

	refs := []swapi.Reference{charRef(1), charRef(1), charRef(1)}
	records, err := r.Resolve(context.Background(), refs)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 1, mock.RequestCount("/people/1/"))
}
