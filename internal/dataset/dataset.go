// Package dataset holds the canonical country/state/city records.
//
// The dataset is loaded exactly once at startup from the embedded JSON
// sources and is immutable afterwards, so it can be shared across any number
// of concurrent readers without locking. All identifier comparisons are
// case-insensitive.
package dataset

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed data/countries.json data/regions.json
var sources embed.FS

// City is a populated place within a state. PCode carries an administrative
// area code (used for Myanmar) as auxiliary metadata; it never participates
// in identity.
type City struct {
	Name      string  `json:"name"`
	LocalName string  `json:"local_name,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	PCode     string  `json:"pcode,omitempty"`
}

// State is a first-level administrative division. Code is unique within its
// country.
type State struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
	Cities    []City `json:"cities,omitempty"`
}

// Country is a top-level record. Code is an ISO-like identifier, unique
// across the dataset.
type Country struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	LocalName      string  `json:"local_name,omitempty"`
	PhoneCode      string  `json:"phone_code"`
	Flag           string  `json:"flag"`
	Region         string  `json:"region"`
	Subregion      string  `json:"subregion"`
	Currency       string  `json:"currency"`
	CurrencySymbol string  `json:"currency_symbol"`
	Language       string  `json:"language"`
	Population     int64   `json:"population"`
	States         []State `json:"states,omitempty"`
}

// Region groups countries by geographic region.
type Region struct {
	Name       string   `json:"name"`
	Subregions []string `json:"subregions"`
	Countries  []string `json:"countries"`
}

type regionSource struct {
	Subregions []string `json:"subregions"`
	Countries  []string `json:"countries"`
}

// Dataset is the immutable in-memory snapshot of all records.
type Dataset struct {
	countries []Country
	regions   []Region
	byCode    map[string]*Country
	byRegion  map[string]*Region
	version   string
}

// Load parses and validates the embedded sources. Any violation of
// referential integrity is a fatal load error: the process cannot serve
// without its base data.
func Load() (*Dataset, error) {
	rawCountries, err := sources.ReadFile("data/countries.json")
	if err != nil {
		return nil, fmt.Errorf("read countries source: %w", err)
	}
	rawRegions, err := sources.ReadFile("data/regions.json")
	if err != nil {
		return nil, fmt.Errorf("read regions source: %w", err)
	}

	var countries []Country
	if err := json.Unmarshal(rawCountries, &countries); err != nil {
		return nil, fmt.Errorf("parse countries source: %w", err)
	}
	var regionSources map[string]regionSource
	if err := json.Unmarshal(rawRegions, &regionSources); err != nil {
		return nil, fmt.Errorf("parse regions source: %w", err)
	}

	ds := &Dataset{
		countries: countries,
		byCode:    make(map[string]*Country, len(countries)),
		byRegion:  make(map[string]*Region, len(regionSources)),
	}

	for i := range ds.countries {
		c := &ds.countries[i]
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" || c.Name == "" {
			return nil, fmt.Errorf("country %d: missing code or name", i)
		}
		c.Code = code
		if _, dup := ds.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate country code %q", code)
		}
		ds.byCode[code] = c

		stateCodes := make(map[string]struct{}, len(c.States))
		for j := range c.States {
			s := &c.States[j]
			sc := strings.ToUpper(strings.TrimSpace(s.Code))
			if sc == "" || s.Name == "" {
				return nil, fmt.Errorf("country %s: state %d: missing code or name", code, j)
			}
			s.Code = sc
			if _, dup := stateCodes[sc]; dup {
				return nil, fmt.Errorf("country %s: duplicate state code %q", code, sc)
			}
			stateCodes[sc] = struct{}{}

			cityNames := make(map[string]struct{}, len(s.Cities))
			for k := range s.Cities {
				name := normalize(s.Cities[k].Name)
				if name == "" {
					return nil, fmt.Errorf("country %s state %s: city %d: missing name", code, sc, k)
				}
				if _, dup := cityNames[name]; dup {
					return nil, fmt.Errorf("country %s state %s: duplicate city %q", code, sc, s.Cities[k].Name)
				}
				cityNames[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(regionSources))
	for name := range regionSources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := regionSources[name]
		for _, code := range src.Countries {
			if _, ok := ds.byCode[strings.ToUpper(code)]; !ok {
				return nil, fmt.Errorf("region %s: unknown country code %q", name, code)
			}
		}
		ds.regions = append(ds.regions, Region{
			Name:       name,
			Subregions: src.Subregions,
			Countries:  src.Countries,
		})
	}
	for i := range ds.regions {
		ds.byRegion[normalize(ds.regions[i].Name)] = &ds.regions[i]
	}

	sum := sha256.New()
	sum.Write(rawCountries)
	sum.Write(rawRegions)
	ds.version = hex.EncodeToString(sum.Sum(nil))[:12]

	return ds, nil
}

// Version is a content hash of the source files, used as the shared-store
// mirror marker.
func (d *Dataset) Version() string { return d.version }

// Countries returns all countries in source order.
func (d *Dataset) Countries() []Country { return d.countries }

// Country looks up a country by code, case-insensitively.
func (d *Dataset) Country(code string) (*Country, bool) {
	c, ok := d.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Regions returns all regions ordered by name.
func (d *Dataset) Regions() []Region { return d.regions }

// Region looks up a region by name, case-insensitively.
func (d *Dataset) Region(name string) (*Region, bool) {
	r, ok := d.byRegion[normalize(name)]
	return r, ok
}

// State looks up a state by code within a country, case-insensitively.
func (c *Country) State(code string) (*State, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i := range c.States {
		if c.States[i].Code == code {
			return &c.States[i], true
		}
	}
	return nil, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
