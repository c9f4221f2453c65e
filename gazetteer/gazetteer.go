// Package gazetteer is an offline place lookup built from Geonames dumps.
//
// It loads cities1000, countryInfo and admin1CodesASCII into memory, keeps an
// inverted name index and an S2 cell index, and serves the same candidate
// lists an online geocoding API would. It implements placeresolver.Lookup.
package gazetteer

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/golang/geo/s2"

	"github.com/andreiashu/placeresolver"
)

// Config contains configuration options for a Gazetteer.
type Config struct {
	DataDir       string // Directory for raw Geonames files (default: "./geonames-data")
	CacheDir      string // Directory for gob cache files (default: "./geonames-cache")
	FuzzyDistance int    // Max edit distance for typo tolerance (0 = disabled)
	MaxResults    int    // Max candidates per lookup (default: 10)
}

// Option is a functional option for configuring a Gazetteer.
type Option func(*Config)

// WithDataDir sets the directory for raw data files.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithCacheDir sets the directory for cache files.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

// WithFuzzyDistance enables typo tolerance up to d edits (capped at 3).
func WithFuzzyDistance(d int) Option {
	return func(c *Config) {
		c.FuzzyDistance = d
	}
}

// WithMaxResults caps how many candidates a lookup returns.
func WithMaxResults(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxResults = n
		}
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		DataDir:    "./geonames-data",
		CacheDir:   "./geonames-cache",
		MaxResults: 10,
	}
}

// maxFuzzyDistance caps FuzzyDistance to prevent expensive scans of the
// whole name index with high edit distances.
const maxFuzzyDistance = 3

// maxNameLen limits lookup names, bounding Levenshtein work per key.
const maxNameLen = 256

// Place is one populated place.
// Memory-optimized: uses table codes for short strings, float32 for coordinates.
type Place struct {
	Name       string  // Place name
	AltNames   string  // Alternate names (comma-separated)
	country    uint16  // Code in countryCodes
	admin1     uint16  // Code in admin1Codes
	timezone   uint16  // Code in timezones
	Latitude   float32 // Latitude in degrees
	Longitude  float32 // Longitude in degrees
	Population int32   // Population count
}

// CountryCode returns the ISO 3166-1 alpha-2 country code (e.g., "US", "FR").
func (p Place) CountryCode() string {
	return countryCodes.name(p.country)
}

// Admin1Code returns the first-level administrative division code (e.g., "TX", "11").
func (p Place) Admin1Code() string {
	return admin1Codes.name(p.admin1)
}

// Timezone returns the IANA timezone name, or "" when unknown.
func (p Place) Timezone() string {
	return timezones.name(p.timezone)
}

// Country contains metadata about a country from Geonames.
type Country struct {
	ISO        string
	ISO3       string
	Name       string
	Capital    string
	Continent  string
	Population int64
}

// Gazetteer provides offline place lookup.
// Safe for concurrent use after construction.
type Gazetteer struct {
	Places    []Place             // All loaded places, sorted by name
	Countries map[string]Country  // ISO code -> country
	admin1    map[string]string   // "CC.CODE" -> admin1 name
	nameIndex map[string][]int    // lowercase name -> place indices
	cellIndex map[s2.CellID][]int // S2 cell -> place indices
	config    *Config
}

// New creates a Gazetteer. It loads the gob cache from CacheDir when present
// and otherwise parses the raw files in DataDir, then writes the cache.
//
//	g, err := gazetteer.New(gazetteer.WithDataDir("/srv/geonames"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r := placeresolver.NewResolver(g)
func New(opts ...Option) (*Gazetteer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.FuzzyDistance > maxFuzzyDistance {
		cfg.FuzzyDistance = maxFuzzyDistance
	}
	initCodeTables()

	g := &Gazetteer{config: cfg}
	if err := g.loadCache(cfg.CacheDir); err != nil || len(g.Places) == 0 {
		// Reset any partially loaded data before the full reload.
		g.Places, g.Countries, g.admin1, g.nameIndex = nil, nil, nil, nil

		if loadErr := g.loadDataSets(cfg.DataDir); loadErr != nil {
			return nil, fmt.Errorf("failed to load data sets: %w", loadErr)
		}
		if storeErr := g.Save(cfg.CacheDir); storeErr != nil {
			log.Printf("warning: failed to store cache: %v", storeErr)
		}
	}

	g.buildCellIndex()
	return g, nil
}

// Lookup returns the places named name, most populous first. The whole
// string is matched against primary and alternate names, case-insensitively;
// "Paris, TX" matches nothing, "Paris" matches every Paris. With a fuzzy
// distance configured and no exact hit, names within that many edits match.
func (g *Gazetteer) Lookup(ctx context.Context, name string) ([]placeresolver.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := toLower(strings.TrimSpace(name))
	if runes := []rune(key); len(runes) > maxNameLen {
		key = string(runes[:maxNameLen])
	}
	if key == "" {
		return []placeresolver.Candidate{}, nil
	}

	indices := g.nameIndex[key]
	if len(indices) == 0 && g.config.FuzzyDistance > 0 && len(key) > 2 {
		var err error
		if indices, err = g.fuzzyIndices(ctx, key); err != nil {
			return nil, err
		}
	}

	matches := g.rank(indices)
	if len(matches) > g.config.MaxResults {
		matches = matches[:g.config.MaxResults]
	}

	out := make([]placeresolver.Candidate, len(matches))
	for i, idx := range matches {
		out[i] = g.Candidate(g.Places[idx])
	}
	return out, nil
}

// fuzzyIndices scans the name index for keys within FuzzyDistance edits.
func (g *Gazetteer) fuzzyIndices(ctx context.Context, key string) ([]int, error) {
	var indices []int
	n := 0
	for k, idxs := range g.nameIndex {
		if n++; n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if fuzzyMatch(key, k, g.config.FuzzyDistance) {
			indices = append(indices, idxs...)
		}
	}
	return indices, nil
}

// rank dedupes place indices and orders them by population (desc), then
// name, then index, so results are deterministic.
func (g *Gazetteer) rank(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	slices.SortStableFunc(out, func(i, j int) int {
		if c := comparePlaces(g.Places[i], g.Places[j]); c != 0 {
			return c
		}
		return cmp.Compare(i, j)
	})
	return out
}

// comparePlaces orders the more populous place first, then by name.
func comparePlaces(a, b Place) int {
	if c := cmp.Compare(b.Population, a.Population); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// Candidate converts a place into a resolver candidate, filling in the
// country and admin1 names.
func (g *Gazetteer) Candidate(p Place) placeresolver.Candidate {
	cc := p.CountryCode()
	return placeresolver.Candidate{
		Name:        p.Name,
		Admin1:      g.Admin1Name(cc, p.Admin1Code()),
		Country:     g.Countries[cc].Name,
		CountryCode: cc,
		Latitude:    float64(p.Latitude),
		Longitude:   float64(p.Longitude),
		Timezone:    p.Timezone(),
		Population:  placeresolver.Pop(int64(p.Population)),
	}
}

// Admin1Name returns the admin1 division name for a country and code.
// Unknown divisions fall back to the code itself.
func (g *Gazetteer) Admin1Name(countryCode, code string) string {
	if code == "" {
		return ""
	}
	if name, ok := g.admin1[countryCode+"."+toUpper(code)]; ok {
		return name
	}
	return code
}

// IsAdmin1 reports whether code is a known admin1 division of countryCode.
func (g *Gazetteer) IsAdmin1(countryCode, code string) bool {
	_, ok := g.admin1[countryCode+"."+toUpper(code)]
	return ok
}

// fuzzyMatch compares two strings with optional Levenshtein distance tolerance.
// If maxDist is 0, performs exact case-insensitive match.
func fuzzyMatch(query, candidate string, maxDist int) bool {
	if maxDist == 0 {
		return strings.EqualFold(query, candidate)
	}
	// Rune count difference is a lower bound on edit distance.
	if d := utf8.RuneCountInString(query) - utf8.RuneCountInString(candidate); d > maxDist || -d > maxDist {
		return false
	}
	dist := levenshtein.ComputeDistance(toLower(query), toLower(candidate))
	return dist <= maxDist
}

// toLower converts a string to lowercase with the Unicode-aware standard
// library; Geonames names are UTF-8 ("Zürich", "東京", "São Paulo").
func toLower(s string) string {
	return strings.ToLower(s)
}

// toUpper converts a string to uppercase. See toLower.
func toUpper(s string) string {
	return strings.ToUpper(s)
}
