// Package history records searches in SQLite so a later session can pick up
// the last query and place.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/andreiashu/placeresolver"
)

// defaultRecentLimit applies when Recent is called with a limit <= 0.
const defaultRecentLimit = 20

// Entry is one search. A failed search has Failed set; its Place is empty
// when the query never resolved and set when only the weather fetch failed.
type Entry struct {
	ID        string                      `json:"id"`
	Query     string                      `json:"query"`
	Place     placeresolver.ResolvedPlace `json:"place"`
	Units     string                      `json:"units,omitempty"`
	Geohash   string                      `json:"geohash,omitempty"`
	Failed    bool                        `json:"failed,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

// HasPlace reports whether the search resolved to a place.
func (e Entry) HasPlace() bool { return e.Place.Name != "" }

// Store is a SQLite-backed search history. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the searches table and its index.
func (s *Store) EnsureSchema() error {
	const createTable = `
CREATE TABLE IF NOT EXISTS searches (
  id TEXT PRIMARY KEY,
  query TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  admin1 TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  lat REAL NOT NULL DEFAULT 0,
  lon REAL NOT NULL DEFAULT 0,
  timezone TEXT NOT NULL DEFAULT '',
  units TEXT NOT NULL DEFAULT '',
  geohash TEXT NOT NULL DEFAULT '',
  failed INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
`
	if _, err := s.db.Exec(createTable); err != nil {
		return fmt.Errorf("creating searches table: %w", err)
	}
	// Databases written before failed searches were kept lack the column.
	var hasFailed int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('searches') WHERE name = 'failed'`).Scan(&hasFailed); err != nil {
		return fmt.Errorf("inspecting searches table: %w", err)
	}
	if hasFailed == 0 {
		if _, err := s.db.Exec(`ALTER TABLE searches ADD COLUMN failed INTEGER NOT NULL DEFAULT 0;`); err != nil {
			return fmt.Errorf("adding failed column: %w", err)
		}
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_searches_created ON searches(created_at);`); err != nil {
		return fmt.Errorf("creating searches index: %w", err)
	}
	return nil
}

// Add stores e. ID and CreatedAt are filled in when empty, and Geohash when
// the entry has a place; the stored entry is returned.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Geohash == "" && e.HasPlace() {
		e.Geohash = geohash.Encode(e.Place.Lat, e.Place.Lon)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO searches (id, query, name, admin1, country, lat, lon, timezone, units, geohash, failed, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.Place.Name, e.Place.Admin1, e.Place.Country,
		e.Place.Lat, e.Place.Lon, e.Place.Timezone, e.Units, e.Geohash, e.Failed, e.CreatedAt.UnixNano())
	if err != nil {
		return Entry{}, fmt.Errorf("inserting search %s: %w", e.ID, err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, query, name, admin1, country, lat, lon, timezone, units, geohash, failed, created_at
FROM searches
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying searches: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Query, &e.Place.Name, &e.Place.Admin1, &e.Place.Country,
			&e.Place.Lat, &e.Place.Lon, &e.Place.Timezone, &e.Units, &e.Geohash, &e.Failed, &created); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Session rebuilds the caller session. LastQuery comes from the newest
// entry, failed or not; LastPlace from the newest entry that resolved. An
// empty history yields an empty session.
func (s *Store) Session(ctx context.Context) (placeresolver.Session, error) {
	entries, err := s.Recent(ctx, 1)
	if err != nil {
		return placeresolver.Session{}, err
	}
	if len(entries) == 0 {
		return placeresolver.Session{}, nil
	}
	sess := placeresolver.Session{LastQuery: entries[0].Query}
	if entries[0].HasPlace() {
		place := entries[0].Place
		sess.LastPlace = &place
		return sess, nil
	}

	var place placeresolver.ResolvedPlace
	err = s.db.QueryRowContext(ctx, `
SELECT name, admin1, country, lat, lon, timezone
FROM searches WHERE name != ''
ORDER BY created_at DESC, rowid DESC
LIMIT 1`).Scan(&place.Name, &place.Admin1, &place.Country, &place.Lat, &place.Lon, &place.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, nil
	}
	if err != nil {
		return placeresolver.Session{}, fmt.Errorf("loading last place: %w", err)
	}
	sess.LastPlace = &place
	return sess, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	var (
		e       Entry
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, query, name, admin1, country, lat, lon, timezone, units, geohash, failed, created_at
FROM searches WHERE id = ?`, id).Scan(&e.ID, &e.Query, &e.Place.Name, &e.Place.Admin1, &e.Place.Country,
		&e.Place.Lat, &e.Place.Lon, &e.Place.Timezone, &e.Units, &e.Geohash, &e.Failed, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("loading search %s: %w", id, err)
	}
	e.CreatedAt = time.Unix(0, created)
	return e, nil
}

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("search not found")
