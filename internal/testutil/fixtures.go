package testutil

import (
	"encoding/json"
	"fmt"
)

// UpstreamBase is the host used inside fixture reference URLs. Reference
// normalization ignores the host, so fixtures keep the public one.
const UpstreamBase = "https://swapi.dev/api"

func refURL(collection string, id int) string {
	return fmt.Sprintf("%s/%s/%d/", UpstreamBase, collection, id)
}

func refURLs(collection string, ids []int) []string {
	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		urls = append(urls, refURL(collection, id))
	}
	return urls
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// CharacterFixture describes a people resource.
type CharacterFixture struct {
	ID        int
	Name      string
	Height    string
	Mass      string
	HairColor string
	SkinColor string
	EyeColor  string
	BirthYear string
	Gender    string
	Homeworld int
	Films     []int
	Starships []int
}

// JSON renders the fixture the way upstream serves it.
func (c CharacterFixture) JSON() string {
	homeworld := ""
	if c.Homeworld > 0 {
		homeworld = refURL("planets", c.Homeworld)
	}
	return mustJSON(map[string]any{
		"name":       c.Name,
		"height":     c.Height,
		"mass":       c.Mass,
		"hair_color": c.HairColor,
		"skin_color": c.SkinColor,
		"eye_color":  c.EyeColor,
		"birth_year": c.BirthYear,
		"gender":     c.Gender,
		"homeworld":  homeworld,
		"films":      refURLs("films", c.Films),
		"species":    []string{},
		"vehicles":   []string{},
		"starships":  refURLs("starships", c.Starships),
		"url":        refURL("people", c.ID),
	})
}

// PlanetFixture describes a planets resource.
type PlanetFixture struct {
	ID         int
	Name       string
	Diameter   string
	Climate    string
	Terrain    string
	Population string
	Residents  []int
	Films      []int
}

// JSON renders the fixture the way upstream serves it.
func (p PlanetFixture) JSON() string {
	return mustJSON(map[string]any{
		"name":            p.Name,
		"rotation_period": "24",
		"orbital_period":  "364",
		"diameter":        p.Diameter,
		"climate":         p.Climate,
		"gravity":         "1 standard",
		"terrain":         p.Terrain,
		"surface_water":   "1",
		"population":      p.Population,
		"residents":       refURLs("people", p.Residents),
		"films":           refURLs("films", p.Films),
		"url":             refURL("planets", p.ID),
	})
}

// StarshipFixture describes a starships resource.
type StarshipFixture struct {
	ID            int
	Name          string
	Model         string
	Manufacturer  string
	StarshipClass string
	Pilots        []int
	Films         []int
}

// JSON renders the fixture the way upstream serves it.
func (s StarshipFixture) JSON() string {
	return mustJSON(map[string]any{
		"name":                   s.Name,
		"model":                  s.Model,
		"manufacturer":           s.Manufacturer,
		"cost_in_credits":        "unknown",
		"length":                 "34.37",
		"max_atmosphering_speed": "1050",
		"crew":                   "4",
		"passengers":             "6",
		"cargo_capacity":         "100000",
		"consumables":            "2 months",
		"hyperdrive_rating":      "0.5",
		"MGLT":                   "75",
		"starship_class":         s.StarshipClass,
		"pilots":                 refURLs("people", s.Pilots),
		"films":                  refURLs("films", s.Films),
		"url":                    refURL("starships", s.ID),
	})
}

// FilmFixture describes a films resource.
type FilmFixture struct {
	ID          int
	Title       string
	EpisodeID   int
	Director    string
	Producer    string
	ReleaseDate string
	Characters  []int
	Planets     []int
	Starships   []int
}

// JSON renders the fixture the way upstream serves it.
func (f FilmFixture) JSON() string {
	return mustJSON(map[string]any{
		"title":         f.Title,
		"episode_id":    f.EpisodeID,
		"opening_crawl": "It is a period of civil war...",
		"director":      f.Director,
		"producer":      f.Producer,
		"release_date":  f.ReleaseDate,
		"characters":    refURLs("people", f.Characters),
		"planets":       refURLs("planets", f.Planets),
		"starships":     refURLs("starships", f.Starships),
		"vehicles":      []string{},
		"species":       []string{},
		"url":           refURL("films", f.ID),
	})
}

// Catalog is a set of fixtures served together.
type Catalog struct {
	Characters []CharacterFixture
	Planets    []PlanetFixture
	Starships  []StarshipFixture
	Films      []FilmFixture
}

// DefaultCatalog returns a small, cross-referenced slice of the real catalog.
// Fifteen characters make the people listing span two upstream pages.
func DefaultCatalog() Catalog {
	return Catalog{
		Characters: []CharacterFixture{
			{ID: 1, Name: "Luke Skywalker", Height: "172", Mass: "77", HairColor: "blond", SkinColor: "fair", EyeColor: "blue", BirthYear: "19BBY", Gender: "male", Homeworld: 1, Films: []int{1, 2}, Starships: []int{12}},
			{ID: 2, Name: "C-3PO", Height: "167", Mass: "75", HairColor: "n/a", SkinColor: "gold", EyeColor: "yellow", BirthYear: "112BBY", Gender: "n/a", Homeworld: 1, Films: []int{1, 2}},
			{ID: 3, Name: "R2-D2", Height: "96", Mass: "32", HairColor: "n/a", SkinColor: "white, blue", EyeColor: "red", BirthYear: "33BBY", Gender: "n/a", Homeworld: 8, Films: []int{1, 2}},
			{ID: 4, Name: "Darth Vader", Height: "202", Mass: "136", HairColor: "none", SkinColor: "white", EyeColor: "yellow", BirthYear: "41.9BBY", Gender: "male", Homeworld: 1, Films: []int{1, 2}, Starships: []int{13}},
			{ID: 5, Name: "Leia Organa", Height: "150", Mass: "49", HairColor: "brown", SkinColor: "light", EyeColor: "brown", BirthYear: "19BBY", Gender: "female", Homeworld: 2, Films: []int{1, 2}},
			{ID: 6, Name: "Owen Lars", Height: "178", Mass: "120", HairColor: "brown, grey", SkinColor: "light", EyeColor: "blue", BirthYear: "52BBY", Gender: "male", Homeworld: 1, Films: []int{1}},
			{ID: 7, Name: "Beru Whitesun lars", Height: "165", Mass: "75", HairColor: "brown", SkinColor: "light", EyeColor: "blue", BirthYear: "47BBY", Gender: "female", Homeworld: 1, Films: []int{1}},
			{ID: 8, Name: "R5-D4", Height: "97", Mass: "32", HairColor: "n/a", SkinColor: "white, red", EyeColor: "red", BirthYear: "unknown", Gender: "n/a", Homeworld: 1, Films: []int{1}},
			{ID: 9, Name: "Biggs Darklighter", Height: "183", Mass: "84", HairColor: "black", SkinColor: "light", EyeColor: "brown", BirthYear: "24BBY", Gender: "male", Homeworld: 1, Films: []int{1}, Starships: []int{12}},
			{ID: 10, Name: "Obi-Wan Kenobi", Height: "182", Mass: "77", HairColor: "auburn, white", SkinColor: "fair", EyeColor: "blue-gray", BirthYear: "57BBY", Gender: "male", Homeworld: 20, Films: []int{1, 2}},
			{ID: 11, Name: "Anakin Skywalker", Height: "188", Mass: "84", HairColor: "blond", SkinColor: "fair", EyeColor: "blue", BirthYear: "41.9BBY", Gender: "male", Homeworld: 1},
			{ID: 12, Name: "Wilhuff Tarkin", Height: "180", Mass: "unknown", HairColor: "auburn, grey", SkinColor: "fair", EyeColor: "blue", BirthYear: "64BBY", Gender: "male", Homeworld: 21, Films: []int{1}},
			{ID: 13, Name: "Chewbacca", Height: "228", Mass: "112", HairColor: "brown", SkinColor: "unknown", EyeColor: "blue", BirthYear: "200BBY", Gender: "male", Homeworld: 14, Films: []int{1, 2}, Starships: []int{10}},
			{ID: 14, Name: "Han Solo", Height: "180", Mass: "80", HairColor: "brown", SkinColor: "fair", EyeColor: "brown", BirthYear: "29BBY", Gender: "male", Homeworld: 22, Films: []int{1, 2}, Starships: []int{10}},
			{ID: 43, Name: "Shmi Skywalker", Height: "163", Mass: "unknown", HairColor: "black", SkinColor: "fair", EyeColor: "brown", BirthYear: "72BBY", Gender: "female", Homeworld: 1},
		},
		Planets: []PlanetFixture{
			{ID: 1, Name: "Tatooine", Diameter: "10465", Climate: "arid", Terrain: "desert", Population: "200000", Residents: []int{1, 2, 4, 6, 7, 8, 9, 11, 43}, Films: []int{1}},
			{ID: 2, Name: "Alderaan", Diameter: "12500", Climate: "temperate", Terrain: "grasslands, mountains", Population: "2000000000", Residents: []int{5}, Films: []int{1}},
			{ID: 3, Name: "Yavin IV", Diameter: "10200", Climate: "temperate, tropical", Terrain: "jungle, rainforests", Population: "1000", Films: []int{1}},
			{ID: 4, Name: "Hoth", Diameter: "7200", Climate: "frozen", Terrain: "tundra, ice caves, mountain ranges", Population: "unknown", Films: []int{2}},
			{ID: 5, Name: "Dagobah", Diameter: "8900", Climate: "murky", Terrain: "swamp, jungles", Population: "unknown", Films: []int{2}},
		},
		Starships: []StarshipFixture{
			{ID: 2, Name: "CR90 corvette", Model: "CR90 corvette", Manufacturer: "Corellian Engineering Corporation", StarshipClass: "corvette", Films: []int{1}},
			{ID: 3, Name: "Star Destroyer", Model: "Imperial I-class Star Destroyer", Manufacturer: "Kuat Drive Yards", StarshipClass: "Star Destroyer", Films: []int{1, 2}},
			{ID: 10, Name: "Millennium Falcon", Model: "YT-1300 light freighter", Manufacturer: "Corellian Engineering Corporation", StarshipClass: "Light freighter", Pilots: []int{13, 14}, Films: []int{1, 2}},
			{ID: 12, Name: "X-wing", Model: "T-65 X-wing", Manufacturer: "Incom Corporation", StarshipClass: "Starfighter", Pilots: []int{1, 9}, Films: []int{1, 2}},
			{ID: 13, Name: "TIE Advanced x1", Model: "Twin Ion Engine Advanced x1", Manufacturer: "Sienar Fleet Systems", StarshipClass: "Starfighter", Pilots: []int{4}, Films: []int{1}},
		},
		Films: []FilmFixture{
			{ID: 1, Title: "A New Hope", EpisodeID: 4, Director: "George Lucas", Producer: "Gary Kurtz, Rick McCallum", ReleaseDate: "1977-05-25", Characters: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 12, 13, 14}, Planets: []int{1, 2, 3}, Starships: []int{2, 3, 10, 12, 13}},
			{ID: 2, Title: "The Empire Strikes Back", EpisodeID: 5, Director: "Irvin Kershner", Producer: "Gary Kurtz, Rick McCallum", ReleaseDate: "1980-05-17", Characters: []int{1, 2, 3, 4, 5, 10, 13, 14}, Planets: []int{4, 5}, Starships: []int{3, 10, 12}},
			{ID: 3, Title: "Return of the Jedi", EpisodeID: 6, Director: "Richard Marquand", Producer: "Howard G. Kazanjian, George Lucas, Rick McCallum", ReleaseDate: "1983-05-25", Characters: []int{1, 2, 3, 4, 5, 10, 13, 14}, Planets: []int{1, 5}, Starships: []int{3, 10, 12}},
		},
	}
}
