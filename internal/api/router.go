// Package api wires the HTTP surface: routes, request logging, query
// binding, and the structured response envelope.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is a standard http middleware.
type Middleware = func(http.Handler) http.Handler

// Router builds the route tree. Search endpoints take their own limiter
// because free-text search is the expensive surface; everything else shares
// the lookup limiter. The health probe is never limited.
func Router(s *Server, lookupLimit, searchLimit Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, ErrMethodNotAllowed)
	})

	r.Get("/healthz", s.getHealth)

	r.Group(func(r chi.Router) {
		r.Use(lookupLimit)
		r.Get("/version", s.getVersion)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/countries", s.listCountries)
			r.Get("/countries/{code}", s.getCountry)
			r.Get("/countries/{code}/states", s.listStates)
			r.Get("/countries/{code}/states/{state}/cities", s.listCities)
			r.Get("/regions", s.listRegions)
			r.Get("/regions/{region}/countries", s.listRegionCountries)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(searchLimit)
		r.Route("/v1/search", func(r chi.Router) {
			r.Get("/countries", s.searchCountries)
			r.Get("/states", s.searchStates)
			r.Get("/cities", s.searchCities)
			r.Get("/phone-code/{code}", s.searchPhoneCode)
		})
	})

	return r
}
