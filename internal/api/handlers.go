package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nchanko/countrystate/internal/dataset"
	"github.com/nchanko/countrystate/internal/health"
	"github.com/nchanko/countrystate/internal/lookup"
)

// CountrySummary is the compact country shape for lists and search results,
// sized for dropdown usage.
type CountrySummary struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
	PhoneCode string `json:"phone_code"`
	Flag      string `json:"flag"`
}

// CountryRegionSummary adds region fields for region listings.
type CountryRegionSummary struct {
	CountrySummary
	Region    string `json:"region"`
	Subregion string `json:"subregion"`
}

// StateSummary is a state without its city list.
type StateSummary struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
}

// StateResult is a state search hit.
type StateResult struct {
	StateSummary
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

// VersionInfo is the /version payload.
type VersionInfo struct {
	APIName           string     `json:"api_name"`
	CurrentVersion    string     `json:"current_version"`
	AvailableVersions []string   `json:"available_versions"`
	DatasetVersion    string     `json:"dataset_version"`
	Mode              string     `json:"mode"`
	LastSharedContact *time.Time `json:"last_shared_contact,omitempty"`
}

// Server holds the handlers' collaborators.
type Server struct {
	facade  *lookup.Facade
	monitor *health.Monitor
}

// NewServer creates the handler set.
func NewServer(facade *lookup.Facade, monitor *health.Monitor) *Server {
	return &Server{facade: facade, monitor: monitor}
}

func (s *Server) listCountries(w http.ResponseWriter, r *http.Request) {
	q := BindList(w, r)
	if q == nil {
		return
	}
	items, total := s.facade.Countries(r.Context(), q.Limit, q.Offset)
	WriteList(w, countrySummaries(items), total, q.Limit, q.Offset)
}

func (s *Server) getCountry(w http.ResponseWriter, r *http.Request) {
	c, ok := s.facade.Country(r.Context(), chi.URLParam(r, "code"))
	if !ok {
		WriteError(w, r, ErrNotFound.WithParam("Country not found", "code"))
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (s *Server) listStates(w http.ResponseWriter, r *http.Request) {
	q := BindList(w, r)
	if q == nil {
		return
	}
	states, ok := s.facade.States(r.Context(), chi.URLParam(r, "code"))
	if !ok {
		WriteError(w, r, ErrNotFound.WithParam("Country not found", "code"))
		return
	}
	page := dataset.Slice(stateSummaries(states), q.Limit, q.Offset)
	WriteList(w, page, len(states), q.Limit, q.Offset)
}

func (s *Server) listCities(w http.ResponseWriter, r *http.Request) {
	q := BindList(w, r)
	if q == nil {
		return
	}
	cities, ok := s.facade.Cities(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "state"))
	if !ok {
		WriteError(w, r, ErrNotFound.With("Country or state not found"))
		return
	}
	page := dataset.Slice(cities, q.Limit, q.Offset)
	WriteList(w, page, len(cities), q.Limit, q.Offset)
}

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	regions := s.facade.Regions(r.Context())
	WriteList(w, regions, len(regions), len(regions), 0)
}

func (s *Server) listRegionCountries(w http.ResponseWriter, r *http.Request) {
	countries, ok := s.facade.RegionCountries(r.Context(), chi.URLParam(r, "region"))
	if !ok {
		WriteError(w, r, ErrNotFound.WithParam("Region not found", "region"))
		return
	}
	out := make([]CountryRegionSummary, len(countries))
	for i, c := range countries {
		out[i] = CountryRegionSummary{
			CountrySummary: countrySummary(c),
			Region:         c.Region,
			Subregion:      c.Subregion,
		}
	}
	WriteList(w, out, len(out), len(out), 0)
}

func (s *Server) searchCountries(w http.ResponseWriter, r *http.Request) {
	q := BindSearch(w, r)
	if q == nil {
		return
	}
	items, total := s.facade.SearchCountries(r.Context(), q.Q, q.Limit, q.Offset)
	WriteList(w, countrySummaries(items), total, q.Limit, q.Offset)
}

func (s *Server) searchStates(w http.ResponseWriter, r *http.Request) {
	q := BindSearch(w, r)
	if q == nil {
		return
	}
	items, total := s.facade.SearchStates(r.Context(), q.Q, q.Limit, q.Offset)
	out := make([]StateResult, len(items))
	for i, m := range items {
		out[i] = StateResult{
			StateSummary: StateSummary{Code: m.Code, Name: m.Name, LocalName: m.LocalName},
			CountryCode:  m.CountryCode,
			CountryName:  m.CountryName,
		}
	}
	WriteList(w, out, total, q.Limit, q.Offset)
}

func (s *Server) searchCities(w http.ResponseWriter, r *http.Request) {
	q := BindSearch(w, r)
	if q == nil {
		return
	}
	items, total := s.facade.SearchCities(r.Context(), q.Q, q.Limit, q.Offset)
	WriteList(w, items, total, q.Limit, q.Offset)
}

// searchPhoneCode caps results the way the original dropdown API did: a
// phone-code prefix can only plausibly mean a handful of countries.
const phoneCodeResultCap = 10

func (s *Server) searchPhoneCode(w http.ResponseWriter, r *http.Request) {
	matches := s.facade.PhoneCode(r.Context(), chi.URLParam(r, "code"))
	total := len(matches)
	if total > phoneCodeResultCap {
		matches = matches[:phoneCodeResultCap]
	}
	WriteList(w, countrySummaries(matches), total, phoneCodeResultCap, 0)
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	info := VersionInfo{
		APIName:           "Country State API",
		CurrentVersion:    "v1",
		AvailableVersions: []string{"v1"},
		DatasetVersion:    s.facade.DatasetVersion(),
		Mode:              s.monitor.Mode().String(),
	}
	if t, ok := s.monitor.LastContact(); ok {
		info.LastSharedContact = &t
	}
	WriteJSON(w, http.StatusOK, info)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   s.monitor.Mode().String(),
	})
}

func countrySummary(c dataset.Country) CountrySummary {
	return CountrySummary{
		Code:      c.Code,
		Name:      c.Name,
		LocalName: c.LocalName,
		PhoneCode: c.PhoneCode,
		Flag:      c.Flag,
	}
}

func countrySummaries(countries []dataset.Country) []CountrySummary {
	out := make([]CountrySummary, len(countries))
	for i, c := range countries {
		out[i] = countrySummary(c)
	}
	return out
}

func stateSummaries(states []dataset.State) []StateSummary {
	out := make([]StateSummary, len(states))
	for i, s := range states {
		out[i] = StateSummary{Code: s.Code, Name: s.Name, LocalName: s.LocalName}
	}
	return out
}
