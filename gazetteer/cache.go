package gazetteer

import (
	"bytes"
	"compress/bzip2"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Cache file names inside the cache directory. Each may also be present
// bzip2-compressed with a ".bz2" suffix.
const (
	placesCache    = "places.dmp"
	countriesCache = "countries.dmp"
	admin1Cache    = "admin1.dmp"
	namesCache     = "names.dmp"
)

// placeGob is the serialized form of Place. Table codes are stored as strings
// so a cache does not depend on the order codes were assigned.
type placeGob struct {
	Name       string
	AltNames   string
	Country    string
	Admin1     string
	Timezone   string
	Latitude   float32
	Longitude  float32
	Population int32
}

// Save writes the gazetteer to gob files in dir.
func (g *Gazetteer) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	places := make([]placeGob, len(g.Places))
	for i, p := range g.Places {
		places[i] = placeGob{
			Name:       p.Name,
			AltNames:   p.AltNames,
			Country:    p.CountryCode(),
			Admin1:     p.Admin1Code(),
			Timezone:   p.Timezone(),
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Population: p.Population,
		}
	}

	if err := writeGob(filepath.Join(dir, placesCache), places); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(dir, countriesCache), g.Countries); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(dir, admin1Cache), g.admin1); err != nil {
		return err
	}
	return writeGob(filepath.Join(dir, namesCache), g.nameIndex)
}

// loadCache reads the gob files written by Save.
func (g *Gazetteer) loadCache(dir string) error {
	var places []placeGob
	if err := readGob(filepath.Join(dir, placesCache), &places); err != nil {
		return err
	}
	countries := make(map[string]Country)
	if err := readGob(filepath.Join(dir, countriesCache), &countries); err != nil {
		return err
	}
	admin1 := make(map[string]string)
	if err := readGob(filepath.Join(dir, admin1Cache), &admin1); err != nil {
		return err
	}
	names := make(map[string][]int)
	if err := readGob(filepath.Join(dir, namesCache), &names); err != nil {
		return err
	}

	g.Places = make([]Place, len(places))
	for i, p := range places {
		g.Places[i] = Place{
			Name:       p.Name,
			AltNames:   p.AltNames,
			country:    countryCodes.code(p.Country),
			admin1:     admin1Codes.code(p.Admin1),
			timezone:   timezones.code(p.Timezone),
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Population: p.Population,
		}
	}

	// A name index pointing past the place list means the files are from
	// different builds.
	for key, idxs := range names {
		for _, idx := range idxs {
			if idx < 0 || idx >= len(g.Places) {
				return fmt.Errorf("cache name index %q: place %d out of range", key, idx)
			}
		}
	}

	g.Countries = countries
	g.admin1 = admin1
	g.nameIndex = names
	return nil
}

// writeGob encodes v into a fresh file at path.
func writeGob(path string, v any) error {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readGob decodes path (or path.bz2) into v.
func readGob(path string, v any) error {
	r, cleanup, err := openOptionallyBzippedFile(path)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// openOptionallyBzippedFile prefers file.bz2 and falls back to the plain file.
func openOptionallyBzippedFile(file string) (io.Reader, func() error, error) {
	fh, err := os.Open(file + ".bz2")
	if err != nil {
		fh, err = os.Open(file)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		return fh, fh.Close, nil
	}
	return bzip2.NewReader(fh), fh.Close, nil
}

// Load builds a Gazetteer from the cache in dir only, without falling back
// to raw data files.
func Load(dir string, opts ...Option) (*Gazetteer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.CacheDir = dir
	if cfg.FuzzyDistance > maxFuzzyDistance {
		cfg.FuzzyDistance = maxFuzzyDistance
	}
	initCodeTables()

	g := &Gazetteer{config: cfg}
	if err := g.loadCache(dir); err != nil {
		return nil, fmt.Errorf("loading cache: %w", err)
	}
	g.buildCellIndex()
	return g, nil
}
