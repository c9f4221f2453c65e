package gazetteer

import (
	"context"
	"fmt"
	"io"

	"github.com/andreiashu/placeresolver"
)

// Rebuild parses the raw files in dataDir, ignoring any existing cache, and
// writes a fresh cache to cacheDir.
func Rebuild(dataDir, cacheDir string, opts ...Option) (*Gazetteer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.DataDir, cfg.CacheDir = dataDir, cacheDir
	if cfg.FuzzyDistance > maxFuzzyDistance {
		cfg.FuzzyDistance = maxFuzzyDistance
	}
	initCodeTables()

	g := &Gazetteer{config: cfg}
	if err := g.loadDataSets(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load data sets: %w", err)
	}
	if err := g.Save(cacheDir); err != nil {
		return nil, fmt.Errorf("failed to store cache: %w", err)
	}
	g.buildCellIndex()
	return g, nil
}

// KnownQuery is a query with a known resolution.
type KnownQuery struct {
	Query       string
	WantName    string
	WantCountry string // Country name
}

// KnownCoord is a coordinate with a known nearest place.
type KnownCoord struct {
	Lat, Lon    float64
	WantName    string
	WantCountry string
}

// Checks are the integrity and functional checks run by Validate.
type Checks struct {
	MinPlaces    int
	MinCountries int
	Queries      []KnownQuery
	Coords       []KnownCoord
}

// DefaultChecks match the Geonames cities1000 dump (~145K places).
var DefaultChecks = Checks{
	MinPlaces:    140000,
	MinCountries: 200,
	Queries: []KnownQuery{
		{"Austin", "Austin", "United States"},
		{"Paris", "Paris", "France"},
		{"Paris, TX", "Paris", "United States"},
		{"Sydney", "Sydney", "Australia"},
		{"Berlin", "Berlin", "Germany"},
		{"Tokyo", "Tokyo", "Japan"},
	},
	Coords: []KnownCoord{
		{30.26715, -97.74306, "Austin", "United States"},
		{37.44651, -122.15322, "Palo Alto", "United States"},
		{-33.8688, 151.2093, "Sydney", "Australia"},
	},
}

// Validate runs checks against g and reports progress to w. Queries go
// through a Resolver so the whole resolution path is exercised.
func (g *Gazetteer) Validate(ctx context.Context, w io.Writer, checks Checks) error {
	if n := len(g.Places); n < checks.MinPlaces {
		return fmt.Errorf("place count too low: got %d, want >= %d", n, checks.MinPlaces)
	}
	fmt.Fprintf(w, "      Place count: %d (OK)\n", len(g.Places))

	if n := len(g.Countries); n < checks.MinCountries {
		return fmt.Errorf("country count too low: got %d, want >= %d", n, checks.MinCountries)
	}
	fmt.Fprintf(w, "      Country count: %d (OK)\n", len(g.Countries))

	r := placeresolver.NewResolver(g)
	fmt.Fprintf(w, "      Forward lookups: ")
	for _, tc := range checks.Queries {
		p, err := r.Resolve(ctx, tc.Query)
		if err != nil {
			return fmt.Errorf("resolve(%q): %w", tc.Query, err)
		}
		if p.Name != tc.WantName || p.Country != tc.WantCountry {
			return fmt.Errorf("resolve(%q) = %s, want %s, %s", tc.Query, p.Label(), tc.WantName, tc.WantCountry)
		}
	}
	fmt.Fprintf(w, "%d queries OK\n", len(checks.Queries))

	fmt.Fprintf(w, "      Nearest lookups: ")
	for _, tc := range checks.Coords {
		c, ok := g.Nearest(tc.Lat, tc.Lon)
		if !ok {
			return fmt.Errorf("nearest(%v, %v) found nothing, want %s", tc.Lat, tc.Lon, tc.WantName)
		}
		if c.Name != tc.WantName || c.Country != tc.WantCountry {
			return fmt.Errorf("nearest(%v, %v) = %s, %s; want %s, %s",
				tc.Lat, tc.Lon, c.Name, c.Country, tc.WantName, tc.WantCountry)
		}
	}
	fmt.Fprintf(w, "%d coords OK\n", len(checks.Coords))
	return nil
}
