package resolver

import (
	"context"
	"fmt"

	"github.com/Sternrassler/swapi-gateway/pkg/client"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// CharacterDetail is a character with its homeworld expanded. HomeworldPlanet
// is nil when the character has no homeworld or the planet is gone upstream.
type CharacterDetail struct {
	*swapi.Character
	HomeworldPlanet *swapi.Planet `json:"homeworld_planet,omitempty"`
}

// CharacterWithHomeworld fetches a character and its homeworld.
func (r *Resolver) CharacterWithHomeworld(ctx context.Context, id int) (*CharacterDetail, error) {
	character, err := fetchAs[*swapi.Character](ctx, r, swapi.EntityCharacter, id)
	if err != nil {
		return nil, err
	}

	detail := &CharacterDetail{Character: character}
	if character.Homeworld == nil {
		return detail, nil
	}

	planets, err := summaries(ctx, r, []swapi.Reference{*character.Homeworld}, func(p *swapi.Planet) *swapi.Planet { return p })
	if err != nil {
		return nil, err
	}
	if len(planets) == 1 {
		detail.HomeworldPlanet = planets[0]
	}
	return detail, nil
}

// CharacterFilms lists the films a character appears in.
func (r *Resolver) CharacterFilms(ctx context.Context, id int) ([]swapi.FilmSummary, error) {
	character, err := fetchAs[*swapi.Character](ctx, r, swapi.EntityCharacter, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, character.Films, (*swapi.Film).FilmSummary)
}

// CharacterStarships lists the starships a character has piloted.
func (r *Resolver) CharacterStarships(ctx context.Context, id int) ([]swapi.StarshipSummary, error) {
	character, err := fetchAs[*swapi.Character](ctx, r, swapi.EntityCharacter, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, character.Starships, (*swapi.Starship).StarshipSummary)
}

// FilmCharacters lists the characters of a film.
func (r *Resolver) FilmCharacters(ctx context.Context, id int) ([]swapi.CharacterSummary, error) {
	film, err := fetchAs[*swapi.Film](ctx, r, swapi.EntityFilm, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, film.Characters, (*swapi.Character).CharacterSummary)
}

// FilmPlanets lists the planets of a film.
func (r *Resolver) FilmPlanets(ctx context.Context, id int) ([]swapi.PlanetSummary, error) {
	film, err := fetchAs[*swapi.Film](ctx, r, swapi.EntityFilm, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, film.Planets, (*swapi.Planet).PlanetSummary)
}

// FilmStarships lists the starships of a film.
func (r *Resolver) FilmStarships(ctx context.Context, id int) ([]swapi.StarshipSummary, error) {
	film, err := fetchAs[*swapi.Film](ctx, r, swapi.EntityFilm, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, film.Starships, (*swapi.Starship).StarshipSummary)
}

// PlanetResidents lists the residents of a planet.
func (r *Resolver) PlanetResidents(ctx context.Context, id int) ([]swapi.CharacterSummary, error) {
	planet, err := fetchAs[*swapi.Planet](ctx, r, swapi.EntityPlanet, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, planet.Residents, (*swapi.Character).CharacterSummary)
}

// PlanetFilms lists the films a planet appears in.
func (r *Resolver) PlanetFilms(ctx context.Context, id int) ([]swapi.FilmSummary, error) {
	planet, err := fetchAs[*swapi.Planet](ctx, r, swapi.EntityPlanet, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, planet.Films, (*swapi.Film).FilmSummary)
}

// StarshipPilots lists the pilots of a starship. Most starships have none.
func (r *Resolver) StarshipPilots(ctx context.Context, id int) ([]swapi.CharacterSummary, error) {
	ship, err := fetchAs[*swapi.Starship](ctx, r, swapi.EntityStarship, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, ship.Pilots, (*swapi.Character).CharacterSummary)
}

// StarshipFilms lists the films a starship appears in.
func (r *Resolver) StarshipFilms(ctx context.Context, id int) ([]swapi.FilmSummary, error) {
	ship, err := fetchAs[*swapi.Starship](ctx, r, swapi.EntityStarship, id)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, r, ship.Films, (*swapi.Film).FilmSummary)
}

// fetchAs fetches the parent record. Unlike resolved references, a missing
// parent is an error.
func fetchAs[T swapi.Record](ctx context.Context, r *Resolver, t swapi.EntityType, id int) (T, error) {
	var zero T
	rec, err := r.gateway.Fetch(ctx, t, id)
	if err != nil {
		return zero, err
	}
	typed, ok := rec.(T)
	if !ok {
		return zero, &client.UpstreamError{
			Class: client.ClassInvalidResponse,
			Path:  rec.Ref().String(),
			Err:   fmt.Errorf("%w: expected %s", swapi.ErrInvalidRecord, t),
		}
	}
	return typed, nil
}
