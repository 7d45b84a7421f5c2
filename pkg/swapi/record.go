package swapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidRecord is returned when an upstream payload does not match the
// expected resource shape.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one parsed catalog resource.
type Record interface {
	// Ref identifies the record.
	Ref() Reference

	// Field returns a scalar field by its upstream name, as text.
	Field(name string) (string, bool)

	// Summary returns the lightweight projection used in listings.
	Summary() any
}

// Character is a person from the people collection.
type Character struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Height    string      `json:"height"`
	Mass      string      `json:"mass"`
	HairColor string      `json:"hair_color"`
	SkinColor string      `json:"skin_color"`
	EyeColor  string      `json:"eye_color"`
	BirthYear string      `json:"birth_year"`
	Gender    string      `json:"gender"`
	Homeworld *Reference  `json:"homeworld,omitempty"`
	Films     []Reference `json:"films"`
	Species   []Reference `json:"species"`
	Vehicles  []Reference `json:"vehicles"`
	Starships []Reference `json:"starships"`
}

// CharacterSummary is the listing projection of a Character.
type CharacterSummary struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	BirthYear string `json:"birth_year"`
	EyeColor  string `json:"eye_color"`
	HairColor string `json:"hair_color"`
	SkinColor string `json:"skin_color"`
}

func (c *Character) Ref() Reference { return Reference{Type: EntityCharacter, ID: c.ID} }

func (c *Character) Field(name string) (string, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "height":
		return c.Height, true
	case "mass":
		return c.Mass, true
	case "hair_color":
		return c.HairColor, true
	case "skin_color":
		return c.SkinColor, true
	case "eye_color":
		return c.EyeColor, true
	case "birth_year":
		return c.BirthYear, true
	case "gender":
		return c.Gender, true
	}
	return "", false
}

func (c *Character) Summary() any { return c.CharacterSummary() }

// CharacterSummary projects the character to its listing form.
func (c *Character) CharacterSummary() CharacterSummary {
	return CharacterSummary{
		ID:        c.ID,
		Name:      c.Name,
		Gender:    c.Gender,
		BirthYear: c.BirthYear,
		EyeColor:  c.EyeColor,
		HairColor: c.HairColor,
		SkinColor: c.SkinColor,
	}
}

// Planet is a resource from the planets collection.
type Planet struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	RotationPeriod string      `json:"rotation_period"`
	OrbitalPeriod  string      `json:"orbital_period"`
	Diameter       string      `json:"diameter"`
	Climate        string      `json:"climate"`
	Gravity        string      `json:"gravity"`
	Terrain        string      `json:"terrain"`
	SurfaceWater   string      `json:"surface_water"`
	Population     string      `json:"population"`
	Residents      []Reference `json:"residents"`
	Films          []Reference `json:"films"`
}

// PlanetSummary is the listing projection of a Planet.
type PlanetSummary struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Climate string `json:"climate"`
	Terrain string `json:"terrain"`
}

func (p *Planet) Ref() Reference { return Reference{Type: EntityPlanet, ID: p.ID} }

func (p *Planet) Field(name string) (string, bool) {
	switch name {
	case "name":
		return p.Name, true
	case "rotation_period":
		return p.RotationPeriod, true
	case "orbital_period":
		return p.OrbitalPeriod, true
	case "diameter":
		return p.Diameter, true
	case "climate":
		return p.Climate, true
	case "gravity":
		return p.Gravity, true
	case "terrain":
		return p.Terrain, true
	case "surface_water":
		return p.SurfaceWater, true
	case "population":
		return p.Population, true
	}
	return "", false
}

func (p *Planet) Summary() any { return p.PlanetSummary() }

// PlanetSummary projects the planet to its listing form.
func (p *Planet) PlanetSummary() PlanetSummary {
	return PlanetSummary{ID: p.ID, Name: p.Name, Climate: p.Climate, Terrain: p.Terrain}
}

// Starship is a resource from the starships collection.
type Starship struct {
	ID                   int         `json:"id"`
	Name                 string      `json:"name"`
	Model                string      `json:"model"`
	Manufacturer         string      `json:"manufacturer"`
	CostInCredits        string      `json:"cost_in_credits"`
	Length               string      `json:"length"`
	MaxAtmospheringSpeed string      `json:"max_atmosphering_speed"`
	Crew                 string      `json:"crew"`
	Passengers           string      `json:"passengers"`
	CargoCapacity        string      `json:"cargo_capacity"`
	Consumables          string      `json:"consumables"`
	HyperdriveRating     string      `json:"hyperdrive_rating"`
	MGLT                 string      `json:"MGLT"`
	StarshipClass        string      `json:"starship_class"`
	Pilots               []Reference `json:"pilots"`
	Films                []Reference `json:"films"`
}

// StarshipSummary is the listing projection of a Starship.
type StarshipSummary struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Model         string `json:"model"`
	StarshipClass string `json:"starship_class"`
	Manufacturer  string `json:"manufacturer"`
}

func (s *Starship) Ref() Reference { return Reference{Type: EntityStarship, ID: s.ID} }

func (s *Starship) Field(name string) (string, bool) {
	switch name {
	case "name":
		return s.Name, true
	case "model":
		return s.Model, true
	case "manufacturer":
		return s.Manufacturer, true
	case "cost_in_credits":
		return s.CostInCredits, true
	case "length":
		return s.Length, true
	case "max_atmosphering_speed":
		return s.MaxAtmospheringSpeed, true
	case "crew":
		return s.Crew, true
	case "passengers":
		return s.Passengers, true
	case "cargo_capacity":
		return s.CargoCapacity, true
	case "consumables":
		return s.Consumables, true
	case "hyperdrive_rating":
		return s.HyperdriveRating, true
	case "MGLT":
		return s.MGLT, true
	case "starship_class":
		return s.StarshipClass, true
	}
	return "", false
}

func (s *Starship) Summary() any { return s.StarshipSummary() }

// StarshipSummary projects the starship to its listing form.
func (s *Starship) StarshipSummary() StarshipSummary {
	return StarshipSummary{
		ID:            s.ID,
		Name:          s.Name,
		Model:         s.Model,
		StarshipClass: s.StarshipClass,
		Manufacturer:  s.Manufacturer,
	}
}

// Film is a resource from the films collection.
type Film struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	EpisodeID    int         `json:"episode_id"`
	OpeningCrawl string      `json:"opening_crawl"`
	Director     string      `json:"director"`
	Producer     string      `json:"producer"`
	ReleaseDate  string      `json:"release_date"`
	Characters   []Reference `json:"characters"`
	Planets      []Reference `json:"planets"`
	Starships    []Reference `json:"starships"`
	Vehicles     []Reference `json:"vehicles"`
	Species      []Reference `json:"species"`
}

// FilmSummary is the listing projection of a Film.
type FilmSummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	EpisodeID   int    `json:"episode_id"`
	ReleaseDate string `json:"release_date"`
	Director    string `json:"director"`
	Producer    string `json:"producer"`
}

func (f *Film) Ref() Reference { return Reference{Type: EntityFilm, ID: f.ID} }

func (f *Film) Field(name string) (string, bool) {
	switch name {
	case "title":
		return f.Title, true
	case "episode_id":
		return strconv.Itoa(f.EpisodeID), true
	case "opening_crawl":
		return f.OpeningCrawl, true
	case "director":
		return f.Director, true
	case "producer":
		return f.Producer, true
	case "release_date":
		return f.ReleaseDate, true
	}
	return "", false
}

func (f *Film) Summary() any { return f.FilmSummary() }

// FilmSummary projects the film to its listing form.
func (f *Film) FilmSummary() FilmSummary {
	return FilmSummary{
		ID:          f.ID,
		Title:       f.Title,
		EpisodeID:   f.EpisodeID,
		ReleaseDate: f.ReleaseDate,
		Director:    f.Director,
		Producer:    f.Producer,
	}
}

// Decode parses one upstream resource payload of type t, normalizing every
// embedded reference URL. The record id is taken from the payload's url.
func Decode(t EntityType, data []byte) (Record, error) {
	var (
		rec Record
		err error
	)
	switch t {
	case EntityCharacter:
		rec, err = decodeCharacter(data)
	case EntityPlanet:
		rec, err = decodePlanet(data)
	case EntityStarship:
		rec, err = decodeStarship(data)
	case EntityFilm:
		rec, err = decodeFilm(data)
	default:
		return nil, fmt.Errorf("%w: cannot decode %q", ErrInvalidRecord, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, t, err)
	}
	return rec, nil
}

// ListPage is one page of an upstream collection listing.
type ListPage struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// DecodeListPage parses a collection listing page.
func DecodeListPage(data []byte) (*ListPage, error) {
	var page ListPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("%w: list page: %v", ErrInvalidRecord, err)
	}
	if page.Count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidRecord, page.Count)
	}
	return &page, nil
}

// selfID resolves the record's own url into its id, checking the type.
func selfID(raw string, t EntityType) (int, error) {
	if raw == "" {
		return 0, errors.New("missing url")
	}
	ref, err := ParseReference(raw)
	if err != nil {
		return 0, err
	}
	if ref.Type != t {
		return 0, fmt.Errorf("url %q is not a %s", raw, t)
	}
	return ref.ID, nil
}

type characterPayload struct {
	Name      string   `json:"name"`
	Height    string   `json:"height"`
	Mass      string   `json:"mass"`
	HairColor string   `json:"hair_color"`
	SkinColor string   `json:"skin_color"`
	EyeColor  string   `json:"eye_color"`
	BirthYear string   `json:"birth_year"`
	Gender    string   `json:"gender"`
	Homeworld string   `json:"homeworld"`
	Films     []string `json:"films"`
	Species   []string `json:"species"`
	Vehicles  []string `json:"vehicles"`
	Starships []string `json:"starships"`
	URL       string   `json:"url"`
}

func decodeCharacter(data []byte) (*Character, error) {
	var p characterPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	id, err := selfID(p.URL, EntityCharacter)
	if err != nil {
		return nil, err
	}

	c := &Character{
		ID:        id,
		Name:      p.Name,
		Height:    p.Height,
		Mass:      p.Mass,
		HairColor: p.HairColor,
		SkinColor: p.SkinColor,
		EyeColor:  p.EyeColor,
		BirthYear: p.BirthYear,
		Gender:    p.Gender,
	}
	if p.Homeworld != "" {
		ref, err := ParseReference(p.Homeworld)
		if err != nil {
			return nil, err
		}
		c.Homeworld = &ref
	}
	if c.Films, err = ParseReferences(p.Films); err != nil {
		return nil, err
	}
	if c.Species, err = ParseReferences(p.Species); err != nil {
		return nil, err
	}
	if c.Vehicles, err = ParseReferences(p.Vehicles); err != nil {
		return nil, err
	}
	if c.Starships, err = ParseReferences(p.Starships); err != nil {
		return nil, err
	}
	return c, nil
}

type planetPayload struct {
	Name           string   `json:"name"`
	RotationPeriod string   `json:"rotation_period"`
	OrbitalPeriod  string   `json:"orbital_period"`
	Diameter       string   `json:"diameter"`
	Climate        string   `json:"climate"`
	Gravity        string   `json:"gravity"`
	Terrain        string   `json:"terrain"`
	SurfaceWater   string   `json:"surface_water"`
	Population     string   `json:"population"`
	Residents      []string `json:"residents"`
	Films          []string `json:"films"`
	URL            string   `json:"url"`
}

func decodePlanet(data []byte) (*Planet, error) {
	var p planetPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	id, err := selfID(p.URL, EntityPlanet)
	if err != nil {
		return nil, err
	}

	pl := &Planet{
		ID:             id,
		Name:           p.Name,
		RotationPeriod: p.RotationPeriod,
		OrbitalPeriod:  p.OrbitalPeriod,
		Diameter:       p.Diameter,
		Climate:        p.Climate,
		Gravity:        p.Gravity,
		Terrain:        p.Terrain,
		SurfaceWater:   p.SurfaceWater,
		Population:     p.Population,
	}
	if pl.Residents, err = ParseReferences(p.Residents); err != nil {
		return nil, err
	}
	if pl.Films, err = ParseReferences(p.Films); err != nil {
		return nil, err
	}
	return pl, nil
}

type starshipPayload struct {
	Name                 string   `json:"name"`
	Model                string   `json:"model"`
	Manufacturer         string   `json:"manufacturer"`
	CostInCredits        string   `json:"cost_in_credits"`
	Length               string   `json:"length"`
	MaxAtmospheringSpeed string   `json:"max_atmosphering_speed"`
	Crew                 string   `json:"crew"`
	Passengers           string   `json:"passengers"`
	CargoCapacity        string   `json:"cargo_capacity"`
	Consumables          string   `json:"consumables"`
	HyperdriveRating     string   `json:"hyperdrive_rating"`
	MGLT                 string   `json:"MGLT"`
	StarshipClass        string   `json:"starship_class"`
	Pilots               []string `json:"pilots"`
	Films                []string `json:"films"`
	URL                  string   `json:"url"`
}

func decodeStarship(data []byte) (*Starship, error) {
	var p starshipPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	id, err := selfID(p.URL, EntityStarship)
	if err != nil {
		return nil, err
	}

	s := &Starship{
		ID:                   id,
		Name:                 p.Name,
		Model:                p.Model,
		Manufacturer:         p.Manufacturer,
		CostInCredits:        p.CostInCredits,
		Length:               p.Length,
		MaxAtmospheringSpeed: p.MaxAtmospheringSpeed,
		Crew:                 p.Crew,
		Passengers:           p.Passengers,
		CargoCapacity:        p.CargoCapacity,
		Consumables:          p.Consumables,
		HyperdriveRating:     p.HyperdriveRating,
		MGLT:                 p.MGLT,
		StarshipClass:        p.StarshipClass,
	}
	if s.Pilots, err = ParseReferences(p.Pilots); err != nil {
		return nil, err
	}
	if s.Films, err = ParseReferences(p.Films); err != nil {
		return nil, err
	}
	return s, nil
}

type filmPayload struct {
	Title        string   `json:"title"`
	EpisodeID    int      `json:"episode_id"`
	OpeningCrawl string   `json:"opening_crawl"`
	Director     string   `json:"director"`
	Producer     string   `json:"producer"`
	ReleaseDate  string   `json:"release_date"`
	Characters   []string `json:"characters"`
	Planets      []string `json:"planets"`
	Starships    []string `json:"starships"`
	Vehicles     []string `json:"vehicles"`
	Species      []string `json:"species"`
	URL          string   `json:"url"`
}

func decodeFilm(data []byte) (*Film, error) {
	var p filmPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	id, err := selfID(p.URL, EntityFilm)
	if err != nil {
		return nil, err
	}

	f := &Film{
		ID:           id,
		Title:        p.Title,
		EpisodeID:    p.EpisodeID,
		OpeningCrawl: p.OpeningCrawl,
		Director:     p.Director,
		Producer:     p.Producer,
		ReleaseDate:  p.ReleaseDate,
	}
	if f.Characters, err = ParseReferences(p.Characters); err != nil {
		return nil, err
	}
	if f.Planets, err = ParseReferences(p.Planets); err != nil {
		return nil, err
	}
	if f.Starships, err = ParseReferences(p.Starships); err != nil {
		return nil, err
	}
	if f.Vehicles, err = ParseReferences(p.Vehicles); err != nil {
		return nil, err
	}
	if f.Species, err = ParseReferences(p.Species); err != nil {
		return nil, err
	}
	return f, nil
}
