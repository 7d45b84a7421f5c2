package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/swapi-gateway/internal/testutil"
	"github.com/Sternrassler/swapi-gateway/pkg/cache"
	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/ratelimit"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// staticSource serves fixed collections.
type staticSource struct {
	records map[swapi.EntityType][]swapi.Record
	err     error
}

func (s *staticSource) FetchAll(_ context.Context, t swapi.EntityType) ([]swapi.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[t], nil
}

func (s *staticSource) Fetch(_ context.Context, t swapi.EntityType, id int) (swapi.Record, error) {
	for _, rec := range s.records[t] {
		if rec.Ref().ID == id {
			return rec, nil
		}
	}
	return nil, &client.UpstreamError{Class: client.ClassNotFound, Err: client.ErrNotFound}
}

func numberedCharacters(n int) []swapi.Record {
	records := make([]swapi.Record, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, &swapi.Character{ID: i, Name: fmt.Sprintf("Character %03d", i)})
	}
	return records
}

// newCatalogEngine runs queries through a real gateway against the mock.
func newCatalogEngine(t *testing.T) (*Engine, *testutil.MockSWAPI) {
	t.Helper()

	mock := testutil.NewMockSWAPI()
	t.Cleanup(mock.Close)
	mock.LoadCatalog(testutil.DefaultCatalog())

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	gw, err := client.New(cfg, cache.NewMemory(), ratelimit.NewBucket(50, 1000))
	require.NoError(t, err)

	return NewEngine(gw), mock
}

func characterNames(page *Page) []string {
	out := make([]string, 0, len(page.Results))
	for _, r := range page.Results {
		out = append(out, r.(swapi.CharacterSummary).Name)
	}
	return out
}

func TestQuery_SearchSortedByName(t *testing.T) {
	engine, _ := newCatalogEngine(t)

	page, err := engine.Query(context.Background(), Params{
		Type:   swapi.EntityCharacter,
		Page:   1,
		Search: "sky",
		SortBy: "name",
		Order:  OrderAsc,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Count, "count spans both upstream pages")
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"Anakin Skywalker", "Luke Skywalker", "Shmi Skywalker"}, characterNames(page))
	assert.Nil(t, page.NextPage)
	assert.Nil(t, page.PreviousPage)

	luke := page.Results[1].(swapi.CharacterSummary)
	assert.Equal(t, swapi.CharacterSummary{
		ID: 1, Name: "Luke Skywalker", Gender: "male", BirthYear: "19BBY",
		EyeColor: "blue", HairColor: "blond", SkinColor: "fair",
	}, luke)
}

func TestQuery_SearchIsCaseInsensitive(t *testing.T) {
	engine, _ := newCatalogEngine(t)

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityCharacter, Search: "SKYWALKER"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
}

func TestQuery_StarshipSearchCoversModel(t *testing.T) {
	engine, _ := newCatalogEngine(t)

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityStarship, Search: "yt-1300"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "Millennium Falcon", page.Results[0].(swapi.StarshipSummary).Name)
}

func TestQuery_NumericSort(t *testing.T) {
	engine, _ := newCatalogEngine(t)
	ctx := context.Background()

	asc, err := engine.Query(ctx, Params{Type: swapi.EntityCharacter, SortBy: "height"})
	require.NoError(t, err)
	names := characterNames(asc)
	assert.Equal(t, "R2-D2", names[0], "96 sorts before 172")
	assert.Equal(t, "R5-D4", names[1])

	all, err := engine.Query(ctx, Params{Type: swapi.EntityCharacter, SortBy: "height", Order: OrderDesc, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, "Chewbacca", characterNames(all)[0])
}

func TestQuery_UnknownSortsLast(t *testing.T) {
	engine, _ := newCatalogEngine(t)
	ctx := context.Background()

	for _, order := range []Order{OrderAsc, OrderDesc} {
		page, err := engine.Query(ctx, Params{Type: swapi.EntityCharacter, SortBy: "mass", Order: order, PageSize: 20})
		require.NoError(t, err)

		names := characterNames(page)
		require.Len(t, names, 15)
		assert.ElementsMatch(t, []string{"Wilhuff Tarkin", "Shmi Skywalker"}, names[13:], "order %s", order)
	}
}

func TestQuery_PlanetPopulationSort(t *testing.T) {
	engine, _ := newCatalogEngine(t)

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityPlanet, SortBy: "population", Order: OrderDesc})
	require.NoError(t, err)

	var got []string
	for _, r := range page.Results {
		got = append(got, r.(swapi.PlanetSummary).Name)
	}
	assert.Equal(t, []string{"Alderaan", "Tatooine", "Yavin IV", "Hoth", "Dagobah"}, got)
}

func TestQuery_TiesKeepUpstreamOrder(t *testing.T) {
	engine, _ := newCatalogEngine(t)

	for _, order := range []Order{OrderAsc, OrderDesc} {
		page, err := engine.Query(context.Background(), Params{Type: swapi.EntityCharacter, SortBy: "birth_year", Order: order, PageSize: 20})
		require.NoError(t, err)

		names := characterNames(page)
		assert.Less(t, indexOf(names, "Luke Skywalker"), indexOf(names, "Leia Organa"), "order %s", order)
		assert.Less(t, indexOf(names, "Darth Vader"), indexOf(names, "Anakin Skywalker"), "order %s", order)
	}
}

func indexOf(items []string, want string) int {
	for i, v := range items {
		if v == want {
			return i
		}
	}
	return -1
}

func TestQuery_Filters(t *testing.T) {
	engine, _ := newCatalogEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters map[string]string
		want    int
	}{
		{"single", map[string]string{"gender": "female"}, 3},
		{"case sensitive", map[string]string{"gender": "Female"}, 0},
		{"conjunctive", map[string]string{"gender": "male", "eye_color": "blue"}, 5},
		{"exact not substring", map[string]string{"eye_color": "blue-"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := engine.Query(ctx, Params{Type: swapi.EntityCharacter, Filters: tt.filters})
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Count)
		})
	}
}

func TestQuery_FilmRestriction(t *testing.T) {
	engine, _ := newCatalogEngine(t)
	ctx := context.Background()

	chars, err := engine.Query(ctx, Params{Type: swapi.EntityCharacter, FilmID: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, chars.Count)

	planets, err := engine.Query(ctx, Params{Type: swapi.EntityPlanet, FilmID: 2})
	require.NoError(t, err)
	require.Equal(t, 2, planets.Count)

	ships, err := engine.Query(ctx, Params{Type: swapi.EntityStarship, FilmID: 2, Filters: map[string]string{"starship_class": "Starfighter"}})
	require.NoError(t, err)
	require.Equal(t, 1, ships.Count)
	assert.Equal(t, "X-wing", ships.Results[0].(swapi.StarshipSummary).Name)

	_, err = engine.Query(ctx, Params{Type: swapi.EntityCharacter, FilmID: 42})
	assert.True(t, client.IsNotFound(err))
}

func TestQuery_FilmsDefaultToEpisodeOrder(t *testing.T) {
	engine, _ := newCatalogEngine(t)

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityFilm, Order: OrderDesc})
	require.NoError(t, err)

	var episodes []int
	for _, r := range page.Results {
		episodes = append(episodes, r.(swapi.FilmSummary).EpisodeID)
	}
	assert.Equal(t, []int{6, 5, 4}, episodes)
}

func TestQuery_Pagination(t *testing.T) {
	engine := NewEngine(&staticSource{records: map[swapi.EntityType][]swapi.Record{
		swapi.EntityCharacter: numberedCharacters(25),
	}})
	ctx := context.Background()

	tests := []struct {
		name      string
		page      int
		wantPage  int
		wantLen   int
		wantFirst string
		wantNext  *int
		wantPrev  *int
	}{
		{name: "first", page: 1, wantPage: 1, wantLen: 10, wantFirst: "Character 001", wantNext: intPtr(2)},
		{name: "clamped", page: -4, wantPage: 1, wantLen: 10, wantFirst: "Character 001", wantNext: intPtr(2)},
		{name: "middle", page: 2, wantPage: 2, wantLen: 10, wantFirst: "Character 011", wantNext: intPtr(3), wantPrev: intPtr(1)},
		{name: "remainder", page: 3, wantPage: 3, wantLen: 5, wantFirst: "Character 021", wantPrev: intPtr(2)},
		{name: "past end", page: 4, wantPage: 4, wantLen: 0, wantPrev: intPtr(3)},
		{name: "max int", page: math.MaxInt, wantPage: math.MaxInt, wantLen: 0, wantPrev: intPtr(math.MaxInt - 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := engine.Query(ctx, Params{Type: swapi.EntityCharacter, Page: tt.page})
			require.NoError(t, err)

			assert.Equal(t, 25, page.Count)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, tt.wantPage, page.Page)
			require.Len(t, page.Results, tt.wantLen)
			assert.NotNil(t, page.Results)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, page.Results[0].(swapi.CharacterSummary).Name)
			}
			assert.Equal(t, tt.wantNext, page.NextPage)
			assert.Equal(t, tt.wantPrev, page.PreviousPage)
		})
	}
}

func TestQuery_ExactMultipleLastPageIsFull(t *testing.T) {
	engine := NewEngine(&staticSource{records: map[swapi.EntityType][]swapi.Record{
		swapi.EntityCharacter: numberedCharacters(20),
	}})

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityCharacter, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Results, 10)
}

func TestQuery_HugePageSize(t *testing.T) {
	engine := NewEngine(&staticSource{records: map[swapi.EntityType][]swapi.Record{
		swapi.EntityCharacter: numberedCharacters(25),
	}})

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityCharacter, Page: 1, PageSize: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Results, 25)
	assert.Nil(t, page.NextPage)
}

func TestQuery_EmptyCollection(t *testing.T) {
	engine := NewEngine(&staticSource{records: map[swapi.EntityType][]swapi.Record{}})

	page, err := engine.Query(context.Background(), Params{Type: swapi.EntityPlanet})
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Results)
}

func TestQuery_DoesNotReorderSource(t *testing.T) {
	records := numberedCharacters(12)
	engine := NewEngine(&staticSource{records: map[swapi.EntityType][]swapi.Record{
		swapi.EntityCharacter: records,
	}})

	_, err := engine.Query(context.Background(), Params{Type: swapi.EntityCharacter, Order: OrderDesc})
	require.NoError(t, err)
	assert.Equal(t, 1, records[0].Ref().ID)
}

func TestQuery_InvalidParams(t *testing.T) {
	engine := NewEngine(&staticSource{})
	ctx := context.Background()

	tests := []struct {
		name   string
		params Params
	}{
		{"unknown type", Params{Type: swapi.EntitySpecies}},
		{"unknown filter", Params{Type: swapi.EntityCharacter, Filters: map[string]string{"name": "Luke"}}},
		{"unknown sort", Params{Type: swapi.EntityPlanet, SortBy: "gravity"}},
		{"bad order", Params{Type: swapi.EntityFilm, Order: "sideways"}},
		{"film on films", Params{Type: swapi.EntityFilm, FilmID: 1}},
		{"negative film", Params{Type: swapi.EntityCharacter, FilmID: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Query(ctx, tt.params)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestQuery_PropagatesGatewayFailure(t *testing.T) {
	upstreamErr := &client.UpstreamError{Class: client.ClassTransient, Err: client.ErrRetryExhausted}
	engine := NewEngine(&staticSource{err: upstreamErr})

	_, err := engine.Query(context.Background(), Params{Type: swapi.EntityCharacter})
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrRetryExhausted))
	assert.Equal(t, client.ClassTransient, client.ClassOf(err))
}

func TestSchemaFields(t *testing.T) {
	assert.Equal(t, []string{"eye_color", "gender", "hair_color", "skin_color"}, FilterFields(swapi.EntityCharacter))
	assert.Equal(t, []string{"birth_year", "height", "mass", "name"}, SortFields(swapi.EntityCharacter))
	assert.Equal(t, "episode_id", DefaultSort(swapi.EntityFilm))
}

func intPtr(v int) *int { return &v }
