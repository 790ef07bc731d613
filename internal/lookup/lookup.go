// Package lookup answers reference-data queries through a two-path strategy:
// try the shared store under a bounded timeout, then fall back to the
// in-memory dataset, which always succeeds. Result correctness never depends
// on shared-store availability because both paths derive from the same
// dataset snapshot.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nchanko/countrystate/internal/cache"
	"github.com/nchanko/countrystate/internal/dataset"
	"github.com/nchanko/countrystate/internal/health"
)

// Config tunes the facade's shared-store behavior.
type Config struct {
	// Timeout bounds every shared-store round trip. Exceeding it is treated
	// as a miss.
	Timeout time.Duration

	// TTL applies to entries written through on a local hit.
	TTL time.Duration

	// WriteThrough repopulates the shared store after a local computation.
	// Writes are coalesced per key, so sustained store flakiness costs at
	// most one in-flight write per key.
	WriteThrough bool
}

// Facade serves lookup and search requests.
type Facade struct {
	data    *dataset.Dataset
	shared  cache.Store
	monitor *health.Monitor
	cfg     Config
	group   singleflight.Group
}

// New creates a facade. shared may be nil when no store is configured; the
// facade then always serves locally.
func New(data *dataset.Dataset, shared cache.Store, monitor *health.Monitor, cfg Config) *Facade {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 150 * time.Millisecond
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Facade{data: data, shared: shared, monitor: monitor, cfg: cfg}
}

// page is the cached shape of paginated results.
type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// fetch tries the shared store for key, falling back to compute, which
// cannot fail. Timeouts degrade only the current request; connection-level
// errors flip the monitor to local-fallback mode.
func fetch[T any](ctx context.Context, f *Facade, key string, compute func() T) T {
	if f.shared == nil || f.monitor.Mode() != health.ModeShared {
		return compute()
	}

	cctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	raw, err := f.shared.Get(cctx, key)
	switch {
	case err == nil:
		f.monitor.MarkContact()
		var v T
		if json.Unmarshal(raw, &v) == nil {
			return v
		}
		// Undecodable entry: serve locally and overwrite it below.
	case errors.Is(err, cache.ErrMiss):
		f.monitor.MarkContact()
	case errors.Is(err, context.DeadlineExceeded):
		// Slow store degrades this request only.
	default:
		f.monitor.MarkFailure(err)
	}

	v := compute()
	if f.cfg.WriteThrough {
		f.repopulate(key, v)
	}
	return v
}

// repopulate opportunistically writes a locally computed result back to the
// shared store. Concurrent misses on the same key coalesce into one write.
func (f *Facade) repopulate(key string, v any) {
	go f.group.Do(key, func() (any, error) {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.Timeout)
		defer cancel()
		if err := f.shared.Set(ctx, key, raw, f.cfg.TTL); err == nil {
			f.monitor.MarkContact()
		} else if !errors.Is(err, context.DeadlineExceeded) {
			f.monitor.MarkFailure(err)
		}
		return nil, nil
	})
}

// DatasetVersion reports the version of the snapshot being served.
func (f *Facade) DatasetVersion() string { return f.data.Version() }

// Countries returns one page of all countries plus the total count.
func (f *Facade) Countries(ctx context.Context, limit, offset int) ([]dataset.Country, int) {
	p := fetch(ctx, f, KeyCountries(limit, offset), func() page[dataset.Country] {
		all := f.data.Countries()
		return page[dataset.Country]{Items: dataset.Slice(all, limit, offset), Total: len(all)}
	})
	return p.Items, p.Total
}

// Country returns the full record for a country code.
func (f *Facade) Country(ctx context.Context, code string) (dataset.Country, bool) {
	c, ok := f.data.Country(code)
	if !ok {
		return dataset.Country{}, false
	}
	return fetch(ctx, f, KeyCountry(c.Code), func() dataset.Country { return *c }), true
}

// States returns the states of a country.
func (f *Facade) States(ctx context.Context, code string) ([]dataset.State, bool) {
	c, ok := f.data.Country(code)
	if !ok {
		return nil, false
	}
	return fetch(ctx, f, KeyStates(c.Code), func() []dataset.State { return c.States }), true
}

// Cities returns the cities of a state within a country.
func (f *Facade) Cities(ctx context.Context, code, state string) ([]dataset.City, bool) {
	c, ok := f.data.Country(code)
	if !ok {
		return nil, false
	}
	s, ok := c.State(state)
	if !ok {
		return nil, false
	}
	return fetch(ctx, f, KeyCities(c.Code, s.Code), func() []dataset.City { return s.Cities }), true
}

// Regions returns all regions.
func (f *Facade) Regions(ctx context.Context) []dataset.Region {
	return fetch(ctx, f, KeyRegions(), func() []dataset.Region { return f.data.Regions() })
}

// RegionCountries returns the countries of a region, ordered by name.
func (f *Facade) RegionCountries(ctx context.Context, region string) ([]dataset.Country, bool) {
	r, ok := f.data.Region(region)
	if !ok {
		return nil, false
	}
	return fetch(ctx, f, KeyRegionCountries(r.Name), func() []dataset.Country {
		return regionCountries(f.data, r)
	}), true
}

// SearchCountries searches countries by name.
func (f *Facade) SearchCountries(ctx context.Context, query string, limit, offset int) ([]dataset.Country, int) {
	p := fetch(ctx, f, KeySearch("countries", query, limit, offset), func() page[dataset.Country] {
		items, total := f.data.SearchCountries(query, limit, offset)
		return page[dataset.Country]{Items: items, Total: total}
	})
	return p.Items, p.Total
}

// SearchStates searches states across all countries.
func (f *Facade) SearchStates(ctx context.Context, query string, limit, offset int) ([]dataset.StateMatch, int) {
	p := fetch(ctx, f, KeySearch("states", query, limit, offset), func() page[dataset.StateMatch] {
		items, total := f.data.SearchStates(query, limit, offset)
		return page[dataset.StateMatch]{Items: items, Total: total}
	})
	return p.Items, p.Total
}

// SearchCities searches cities across all states.
func (f *Facade) SearchCities(ctx context.Context, query string, limit, offset int) ([]dataset.CityMatch, int) {
	p := fetch(ctx, f, KeySearch("cities", query, limit, offset), func() page[dataset.CityMatch] {
		items, total := f.data.SearchCities(query, limit, offset)
		return page[dataset.CityMatch]{Items: items, Total: total}
	})
	return p.Items, p.Total
}

// PhoneCode finds countries by exact or prefix phone-code match.
func (f *Facade) PhoneCode(ctx context.Context, code string) []dataset.Country {
	return fetch(ctx, f, KeyPhoneCode(code), func() []dataset.Country {
		return f.data.SearchPhoneCode(code)
	})
}

// regionCountries resolves a region's country codes against the dataset,
// sorted by name. Shared between the facade and the mirror so both modes
// hold identical payloads.
func regionCountries(data *dataset.Dataset, r *dataset.Region) []dataset.Country {
	out := make([]dataset.Country, 0, len(r.Countries))
	for _, code := range r.Countries {
		if c, ok := data.Country(code); ok {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MirrorEntries encodes every exact-lookup payload for a full mirror sync.
// Paginated list and search entries are demand-filled by the facade instead,
// since their keys depend on request parameters.
func MirrorEntries(data *dataset.Dataset) (map[string][]byte, error) {
	entries := make(map[string][]byte)
	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		entries[key] = raw
		return nil
	}

	for _, c := range data.Countries() {
		if err := put(KeyCountry(c.Code), c); err != nil {
			return nil, err
		}
		if err := put(KeyStates(c.Code), c.States); err != nil {
			return nil, err
		}
		for _, s := range c.States {
			if err := put(KeyCities(c.Code, s.Code), s.Cities); err != nil {
				return nil, err
			}
		}
	}
	if err := put(KeyRegions(), data.Regions()); err != nil {
		return nil, err
	}
	regions := data.Regions()
	for i := range regions {
		r := &regions[i]
		if err := put(KeyRegionCountries(r.Name), regionCountries(data, r)); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
