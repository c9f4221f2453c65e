// Package placeresolver picks the best geocoding candidate for a free-form
// location query such as "Paris, TX" or "Miami, FL".
//
// A query is normalized into a primary place name and qualifiers, the
// qualifiers are expanded (US state codes, country synonyms) into a token set,
// and every candidate returned by a Lookup is scored against that set. The
// highest score wins; ties keep the order the geocoding service returned.
//
// Example:
//
//	r := placeresolver.NewResolver(openmeteo.NewGeocodingClient())
//	place, err := r.Resolve(ctx, "Paris, TX")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s: %f, %f\n", place.Label(), place.Lat, place.Lon)
package placeresolver

import "strings"

// defaultTimezone is used when a candidate carries no timezone.
const defaultTimezone = "auto"

// Candidate is one place returned by a geocoding lookup.
// Field names follow the Open-Meteo geocoding response.
type Candidate struct {
	Name        string  `json:"name"`
	Admin1      string  `json:"admin1,omitempty"` // State or province
	Admin2      string  `json:"admin2,omitempty"`
	Admin3      string  `json:"admin3,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone,omitempty"`   // Empty means unknown
	Population  *int64  `json:"population,omitempty"` // Nil means unknown
}

// Pop returns a pointer to n, for building candidates with a population.
func Pop(n int64) *int64 {
	return &n
}

// haystack joins the searchable non-empty fields into one lowercase string.
func (c Candidate) haystack() string {
	parts := make([]string, 0, 6)
	for _, f := range []string{c.Name, c.Admin1, c.Admin2, c.Admin3, c.Country, c.CountryCode} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Place maps the candidate to a ResolvedPlace.
func (c Candidate) Place() ResolvedPlace {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	return ResolvedPlace{
		Name:     c.Name,
		Country:  c.Country,
		Admin1:   c.Admin1,
		Lat:      c.Latitude,
		Lon:      c.Longitude,
		Timezone: tz,
	}
}

// ScoredCandidate pairs a candidate with its score.
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

// ResolvedPlace is the single place chosen for a query.
type ResolvedPlace struct {
	Name     string  `json:"name"`
	Country  string  `json:"country,omitempty"`
	Admin1   string  `json:"admin1,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// Label renders "Name, Admin1, Country", skipping empty parts.
func (p ResolvedPlace) Label() string {
	parts := []string{p.Name}
	if p.Admin1 != "" {
		parts = append(parts, p.Admin1)
	}
	if p.Country != "" {
		parts = append(parts, p.Country)
	}
	return strings.Join(parts, ", ")
}

// Session is the state a caller carries between searches: the last query
// typed and the last place resolved. It is passed explicitly to Retry and to
// refresh paths instead of living in globals.
type Session struct {
	LastQuery string         `json:"last_query,omitempty"`
	LastPlace *ResolvedPlace `json:"last_place,omitempty"`
}
