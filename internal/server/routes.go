package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/swapi-gateway/pkg/metrics"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(RequireAPIKey(s.deps.APIKey))

		r.Route("/characters", func(r chi.Router) {
			r.Get("/", s.list(swapi.EntityCharacter))
			r.Get("/{id}", s.character)
			r.Get("/{id}/films", related(s.deps.Resolver.CharacterFilms))
			r.Get("/{id}/starships", related(s.deps.Resolver.CharacterStarships))
		})

		r.Route("/planets", func(r chi.Router) {
			r.Get("/", s.list(swapi.EntityPlanet))
			r.Get("/{id}", s.detail(swapi.EntityPlanet))
			r.Get("/{id}/residents", related(s.deps.Resolver.PlanetResidents))
			r.Get("/{id}/films", related(s.deps.Resolver.PlanetFilms))
		})

		r.Route("/starships", func(r chi.Router) {
			r.Get("/", s.list(swapi.EntityStarship))
			r.Get("/{id}", s.detail(swapi.EntityStarship))
			r.Get("/{id}/pilots", related(s.deps.Resolver.StarshipPilots))
			r.Get("/{id}/films", related(s.deps.Resolver.StarshipFilms))
		})

		r.Route("/films", func(r chi.Router) {
			r.Get("/", s.list(swapi.EntityFilm))
			r.Get("/{id}", s.detail(swapi.EntityFilm))
			r.Get("/{id}/characters", related(s.deps.Resolver.FilmCharacters))
			r.Get("/{id}/planets", related(s.deps.Resolver.FilmPlanets))
			r.Get("/{id}/starships", related(s.deps.Resolver.FilmStarships))
		})
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: Version})
}

// list answers a collection query.
func (s *Server) list(t swapi.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseQueryParams(t, r.URL.Query())
		if err != nil {
			HandleError(w, r, err)
			return
		}

		page, err := s.deps.Engine.Query(r.Context(), params)
		if err != nil {
			HandleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// detail returns one full record.
func (s *Server) detail(t swapi.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			HandleError(w, r, err)
			return
		}

		rec, err := s.deps.Gateway.Fetch(r.Context(), t, id)
		if err != nil {
			HandleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// character is detail with optional homeworld expansion.
func (s *Server) character(w http.ResponseWriter, r *http.Request) {
	expand, err := boolParam(r.URL.Query(), "include_homeworld")
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if !expand {
		s.detail(swapi.EntityCharacter)(w, r)
		return
	}

	id, err := pathID(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	detail, err := s.deps.Resolver.CharacterWithHomeworld(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// related adapts a correlated lookup to a handler.
func related[S any](lookup func(ctx context.Context, id int) ([]S, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			HandleError(w, r, err)
			return
		}

		items, err := lookup(r.Context(), id)
		if err != nil {
			HandleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}
