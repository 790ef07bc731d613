package dataset

import (
	"sort"
	"strings"
)

// StateMatch is a state search hit annotated with its parent country.
type StateMatch struct {
	State
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

// CityMatch is a city search hit annotated with its parent state and country.
type CityMatch struct {
	City
	StateCode   string `json:"state_code"`
	StateName   string `json:"state_name"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}

// SearchCountries matches countries by case-insensitive substring against
// name and local name. Exact matches sort first, then ascending by name;
// ties break on code so repeated calls slice the same ordering.
func (d *Dataset) SearchCountries(query string, limit, offset int) ([]Country, int) {
	q := normalize(query)
	if q == "" {
		return nil, 0
	}

	type ranked struct {
		c     Country
		exact bool
	}
	var hits []ranked
	for i := range d.countries {
		c := &d.countries[i]
		hit, exact := match(q, c.Name, c.LocalName)
		if hit {
			hits = append(hits, ranked{c: *c, exact: exact})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].exact != hits[j].exact {
			return hits[i].exact
		}
		if hits[i].c.Name != hits[j].c.Name {
			return hits[i].c.Name < hits[j].c.Name
		}
		return hits[i].c.Code < hits[j].c.Code
	})

	out := make([]Country, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return slice(out, limit, offset), len(out)
}

// SearchStates matches states across all countries.
func (d *Dataset) SearchStates(query string, limit, offset int) ([]StateMatch, int) {
	q := normalize(query)
	if q == "" {
		return nil, 0
	}

	type ranked struct {
		m     StateMatch
		exact bool
	}
	var hits []ranked
	for i := range d.countries {
		c := &d.countries[i]
		for j := range c.States {
			s := &c.States[j]
			hit, exact := match(q, s.Name, s.LocalName)
			if hit {
				hits = append(hits, ranked{
					m:     StateMatch{State: *s, CountryCode: c.Code, CountryName: c.Name},
					exact: exact,
				})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].exact != hits[j].exact {
			return hits[i].exact
		}
		if hits[i].m.Name != hits[j].m.Name {
			return hits[i].m.Name < hits[j].m.Name
		}
		if hits[i].m.CountryCode != hits[j].m.CountryCode {
			return hits[i].m.CountryCode < hits[j].m.CountryCode
		}
		return hits[i].m.Code < hits[j].m.Code
	})

	out := make([]StateMatch, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return slice(out, limit, offset), len(out)
}

// SearchCities matches cities across all states and countries.
func (d *Dataset) SearchCities(query string, limit, offset int) ([]CityMatch, int) {
	q := normalize(query)
	if q == "" {
		return nil, 0
	}

	type ranked struct {
		m     CityMatch
		exact bool
	}
	var hits []ranked
	for i := range d.countries {
		c := &d.countries[i]
		for j := range c.States {
			s := &c.States[j]
			for k := range s.Cities {
				city := &s.Cities[k]
				hit, exact := match(q, city.Name, city.LocalName)
				if hit {
					hits = append(hits, ranked{
						m: CityMatch{
							City:        *city,
							StateCode:   s.Code,
							StateName:   s.Name,
							CountryCode: c.Code,
							CountryName: c.Name,
						},
						exact: exact,
					})
				}
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].exact != hits[j].exact {
			return hits[i].exact
		}
		if hits[i].m.Name != hits[j].m.Name {
			return hits[i].m.Name < hits[j].m.Name
		}
		if hits[i].m.CountryCode != hits[j].m.CountryCode {
			return hits[i].m.CountryCode < hits[j].m.CountryCode
		}
		return hits[i].m.StateCode < hits[j].m.StateCode
	})

	out := make([]CityMatch, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return slice(out, limit, offset), len(out)
}

// SearchPhoneCode finds countries whose phone code equals or starts with the
// given code. A missing leading "+" is supplied, so "44" and "+44" are
// equivalent.
func (d *Dataset) SearchPhoneCode(code string) []Country {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}

	var out []Country
	for i := range d.countries {
		if strings.HasPrefix(d.countries[i].PhoneCode, code) {
			out = append(out, d.countries[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func match(q, name, local string) (hit, exact bool) {
	n := normalize(name)
	l := normalize(local)
	if n == q || (l != "" && l == q) {
		return true, true
	}
	if strings.Contains(n, q) || (l != "" && strings.Contains(l, q)) {
		return true, false
	}
	return false, false
}

func slice[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Slice applies the same offset/limit contract search uses to an arbitrary
// list, for plain list endpoints.
func Slice[T any](items []T, limit, offset int) []T {
	return slice(items, limit, offset)
}
