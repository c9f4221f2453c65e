package gazetteer

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// Raw Geonames files read from the data directory.
const (
	citiesZip   = "cities1000.zip"
	citiesTxt   = "cities1000.txt"
	countryFile = "countryInfo.txt"
	admin1File  = "admin1CodesASCII.txt"
)

// DataSource is a downloadable Geonames file.
type DataSource struct {
	URL  string // Download URL
	File string // File name inside the data directory
}

// DataSources lists the Geonames dumps the gazetteer is built from.
var DataSources = []DataSource{
	{URL: "https://download.geonames.org/export/dump/cities1000.zip", File: citiesZip},
	{URL: "https://download.geonames.org/export/dump/countryInfo.txt", File: countryFile},
	{URL: "https://download.geonames.org/export/dump/admin1CodesASCII.txt", File: admin1File},
}

// dedupeGeohashLen is the geohash precision (~5m cells) under which two rows
// with the same name are considered the same place.
const dedupeGeohashLen = 9

// downloadMu serializes downloads so concurrent callers cannot corrupt files.
var downloadMu sync.Mutex

// httpClient is a shared HTTP client with reasonable timeouts.
var httpClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// Download fetches any missing Geonames files into dataDir.
func Download(ctx context.Context, dataDir string) error {
	downloadMu.Lock()
	defer downloadMu.Unlock()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	for _, f := range DataSources {
		localPath := filepath.Join(dataDir, f.File)
		if _, err := os.Stat(localPath); err == nil {
			continue
		}
		if err := downloadFile(ctx, f.URL, localPath); err != nil {
			return fmt.Errorf("downloading %s: %w", f.File, err)
		}
	}
	return nil
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}

	// Remove partial files on error.
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", path, err)
	}
	success = true
	return nil
}

// loadDataSets parses the raw files in dataDir and builds the name index.
func (g *Gazetteer) loadDataSets(dataDir string) error {
	var err error
	if g.Countries, err = loadCountries(filepath.Join(dataDir, countryFile)); err != nil {
		return fmt.Errorf("loading country info: %w", err)
	}
	if g.admin1, err = loadAdmin1(filepath.Join(dataDir, admin1File)); err != nil {
		return fmt.Errorf("loading admin1 codes: %w", err)
	}
	if err := g.loadCities(dataDir); err != nil {
		return fmt.Errorf("loading cities: %w", err)
	}

	sort.SliceStable(g.Places, func(i, j int) bool {
		return compareCaseInsensitive(g.Places[i].Name, g.Places[j].Name) < 0
	})
	g.buildNameIndex()
	return nil
}

// buildNameIndex indexes every place under its lowercase name and each
// comma-separated alternate name.
func (g *Gazetteer) buildNameIndex() {
	g.nameIndex = make(map[string][]int)
	for i, p := range g.Places {
		if key := toLower(p.Name); key != "" {
			g.nameIndex[key] = append(g.nameIndex[key], i)
		}
		if p.AltNames == "" {
			continue
		}
		seen := map[string]bool{toLower(p.Name): true}
		for _, raw := range strings.Split(p.AltNames, ",") {
			alt := toLower(strings.TrimSpace(raw))
			if alt == "" || seen[alt] {
				continue
			}
			seen[alt] = true
			g.nameIndex[alt] = append(g.nameIndex[alt], i)
		}
	}
}

// loadCities reads cities1000.zip, or cities1000.txt when no zip exists.
func (g *Gazetteer) loadCities(dataDir string) error {
	dedupe := make(map[string]bool)

	zipPath := filepath.Join(dataDir, citiesZip)
	if _, err := os.Stat(zipPath); err == nil {
		rz, err := zip.OpenReader(zipPath)
		if err != nil {
			return fmt.Errorf("opening zip file: %w", err)
		}
		defer rz.Close()

		// Entries are only streamed into memory, never extracted to disk.
		for _, f := range rz.File {
			if err := g.processZipEntry(f, dedupe); err != nil {
				return err
			}
		}
		return nil
	}

	fi, err := os.Open(filepath.Join(dataDir, citiesTxt))
	if err != nil {
		return fmt.Errorf("opening cities: %w", err)
	}
	defer fi.Close()
	return g.parseCities(fi, dedupe)
}

// processZipEntry reads a single file entry from a zip archive.
func (g *Gazetteer) processZipEntry(f *zip.File, dedupe map[string]bool) error {
	fi, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening file in zip: %w", err)
	}
	defer fi.Close()
	return g.parseCities(fi, dedupe)
}

// parseCities reads Geonames "geoname" rows: 19 tab-separated fields.
func (g *Gazetteer) parseCities(r io.Reader, dedupe map[string]bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 19)
		if len(fields) != 19 {
			continue
		}

		// Skip rows with unparseable coordinates rather than storing them at (0,0).
		lat, errLat := strconv.ParseFloat(fields[4], 32)
		lng, errLng := strconv.ParseFloat(fields[5], 32)
		if errLat != nil || errLng != nil {
			continue
		}
		pop, _ := strconv.Atoi(fields[14]) // Population of 0 is acceptable

		name := strings.TrimSpace(fields[1])
		if name == "" {
			continue
		}

		key := toLower(name) + "|" + geohash.Encode(lat, lng)[:dedupeGeohashLen]
		if dedupe[key] {
			continue
		}
		dedupe[key] = true

		g.Places = append(g.Places, Place{
			Name:       name,
			AltNames:   fields[3],
			country:    countryCodes.code(fields[8]),
			admin1:     admin1Codes.code(fields[10]),
			timezone:   timezones.code(fields[17]),
			Latitude:   float32(lat),
			Longitude:  float32(lng),
			Population: int32(pop),
		})
	}
	return scanner.Err()
}

// loadCountries reads countryInfo.txt: '#' comments, 19 tab-separated fields.
func loadCountries(path string) (map[string]Country, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer fi.Close()

	countries := make(map[string]Country)
	scanner := bufio.NewScanner(fi)
	for scanner.Scan() {
		t := scanner.Text()
		if len(t) == 0 || t[0] == '#' {
			continue
		}
		fields := strings.SplitN(t, "\t", 19)
		if len(fields) != 19 || fields[0] == "" || fields[0] == "0" {
			continue
		}
		pop, _ := strconv.ParseInt(fields[7], 10, 64)
		countries[fields[0]] = Country{
			ISO:        fields[0],
			ISO3:       fields[1],
			Name:       fields[4],
			Capital:    fields[5],
			Continent:  fields[8],
			Population: pop,
		}
	}
	return countries, scanner.Err()
}

// loadAdmin1 reads admin1CodesASCII.txt: CC.CODE<tab>Name<tab>AsciiName<tab>GeonameId.
func loadAdmin1(path string) (map[string]string, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer fi.Close()

	divisions := make(map[string]string)
	scanner := bufio.NewScanner(fi)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		parts := strings.SplitN(fields[0], ".", 2)
		if len(parts) != 2 {
			continue
		}
		divisions[parts[0]+"."+toUpper(parts[1])] = fields[1]
	}
	return divisions, scanner.Err()
}

// compareCaseInsensitive compares two strings case-insensitively with
// Unicode-aware lowercasing, so "Zürich" sorts correctly against "Zwolle".
func compareCaseInsensitive(a, b string) int {
	aLower := toLower(a)
	bLower := toLower(b)
	if aLower < bLower {
		return -1
	}
	if aLower > bLower {
		return 1
	}
	return 0
}
