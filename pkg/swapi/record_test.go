package swapi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lukeJSON = `{
	"name": "Luke Skywalker",
	"height": "172",
	"mass": "77",
	"hair_color": "blond",
	"skin_color": "fair",
	"eye_color": "blue",
	"birth_year": "19BBY",
	"gender": "male",
	"homeworld": "https://swapi.dev/api/planets/1/",
	"films": ["https://swapi.dev/api/films/1/", "https://swapi.dev/api/films/2/"],
	"species": [],
	"vehicles": ["https://swapi.dev/api/vehicles/14/"],
	"starships": ["https://swapi.dev/api/starships/12/"],
	"created": "2014-12-09T13:50:51.644000Z",
	"url": "https://swapi.dev/api/people/1/"
}`

const newHopeJSON = `{
	"title": "A New Hope",
	"episode_id": 4,
	"opening_crawl": "It is a period of civil war...",
	"director": "George Lucas",
	"producer": "Gary Kurtz, Rick McCallum",
	"release_date": "1977-05-25",
	"characters": ["https://swapi.dev/api/people/1/", "https://swapi.dev/api/people/2/"],
	"planets": ["https://swapi.dev/api/planets/1/"],
	"starships": ["https://swapi.dev/api/starships/2/"],
	"vehicles": [],
	"species": [],
	"url": "https://swapi.dev/api/films/1/"
}`

func TestDecode_Character(t *testing.T) {
	rec, err := Decode(EntityCharacter, []byte(lukeJSON))
	require.NoError(t, err)

	luke, ok := rec.(*Character)
	require.True(t, ok)
	assert.Equal(t, 1, luke.ID)
	assert.Equal(t, "Luke Skywalker", luke.Name)
	require.NotNil(t, luke.Homeworld)
	assert.Equal(t, Reference{Type: EntityPlanet, ID: 1}, *luke.Homeworld)
	assert.Equal(t, []Reference{{Type: EntityFilm, ID: 1}, {Type: EntityFilm, ID: 2}}, luke.Films)
	assert.Equal(t, []Reference{{Type: EntityVehicle, ID: 14}}, luke.Vehicles)
	assert.Empty(t, luke.Species)

	height, ok := rec.Field("height")
	assert.True(t, ok)
	assert.Equal(t, "172", height)

	_, ok = rec.Field("homeworld")
	assert.False(t, ok, "references are not scalar fields")

	assert.Equal(t, CharacterSummary{
		ID: 1, Name: "Luke Skywalker", Gender: "male", BirthYear: "19BBY",
		EyeColor: "blue", HairColor: "blond", SkinColor: "fair",
	}, rec.Summary())
}

func TestDecode_Film(t *testing.T) {
	rec, err := Decode(EntityFilm, []byte(newHopeJSON))
	require.NoError(t, err)

	film := rec.(*Film)
	assert.Equal(t, Reference{Type: EntityFilm, ID: 1}, film.Ref())
	assert.Len(t, film.Characters, 2)

	episode, ok := film.Field("episode_id")
	assert.True(t, ok)
	assert.Equal(t, "4", episode)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		typ  EntityType
		body string
	}{
		{name: "malformed json", typ: EntityCharacter, body: `{"name": `},
		{name: "missing url", typ: EntityPlanet, body: `{"name": "Tatooine"}`},
		{name: "url of another type", typ: EntityPlanet, body: lukeJSON},
		{name: "bad embedded reference", typ: EntityCharacter, body: `{"name":"x","films":["https://swapi.dev/api/films/abc/"],"url":"https://swapi.dev/api/people/1/"}`},
		{name: "reference only type", typ: EntityVehicle, body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.typ, []byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
}

func TestDecodeListPage(t *testing.T) {
	page, err := DecodeListPage([]byte(`{"count": 82, "next": "https://swapi.dev/api/people/?page=2", "previous": null, "results": [` + lukeJSON + `]}`))
	require.NoError(t, err)
	assert.Equal(t, 82, page.Count)
	require.NotNil(t, page.Next)
	assert.Nil(t, page.Previous)
	assert.Len(t, page.Results, 1)

	_, err = DecodeListPage([]byte(`[]`))
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}
