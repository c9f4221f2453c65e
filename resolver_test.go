package placeresolver_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/andreiashu/placeresolver"
)

// recordingLookup serves canned results and records the names it was asked for.
type recordingLookup struct {
	mu      sync.Mutex
	results map[string][]placeresolver.Candidate
	errs    map[string]error
	calls   []string
}

func (l *recordingLookup) Lookup(_ context.Context, name string) ([]placeresolver.Candidate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
	if err := l.errs[name]; err != nil {
		return nil, err
	}
	return l.results[name], nil
}

var (
	parisFrance = placeresolver.Candidate{
		Name: "Paris", Admin1: "Île-de-France", Country: "France", CountryCode: "FR",
		Latitude: 48.85341, Longitude: 2.3488, Timezone: "Europe/Paris", Population: placeresolver.Pop(2_138_551),
	}
	parisTexas = placeresolver.Candidate{
		Name: "Paris", Admin1: "Texas", Country: "United States", CountryCode: "US",
		Latitude: 33.66094, Longitude: -95.55551, Timezone: "America/Chicago", Population: placeresolver.Pop(25_171),
	}
)

func TestResolveFallsBackToPrimaryName(t *testing.T) {
	lookup := &recordingLookup{results: map[string][]placeresolver.Candidate{
		"paris": {parisFrance, parisTexas},
	}}
	r := placeresolver.NewResolver(lookup)

	res, err := r.Explain(context.Background(), "  paris ,  tx ")
	if err != nil {
		t.Fatalf("Explain error = %v", err)
	}
	if got, want := lookup.calls, []string{"paris, tx", "paris"}; !equalStrings(got, want) {
		t.Errorf("lookup calls = %q, want %q", got, want)
	}
	if !res.UsedFallback {
		t.Error("UsedFallback = false, want true")
	}
	if res.LookupName != "paris" {
		t.Errorf("LookupName = %q, want paris", res.LookupName)
	}
	if res.Place.Admin1 != "Texas" {
		t.Errorf("resolved %q, want the Texas candidate", res.Place.Label())
	}
	if res.Place.Timezone != "America/Chicago" {
		t.Errorf("timezone = %q, want America/Chicago", res.Place.Timezone)
	}
	if len(res.Ranked) != 2 {
		t.Errorf("len(Ranked) = %d, want 2", len(res.Ranked))
	}
}

func TestResolveUsesFullQueryFirst(t *testing.T) {
	lookup := &recordingLookup{results: map[string][]placeresolver.Candidate{
		"Paris, France": {parisFrance},
		"Paris":         {parisTexas},
	}}
	r := placeresolver.NewResolver(lookup)

	place, err := r.Resolve(context.Background(), "Paris, France")
	if err != nil {
		t.Fatal(err)
	}
	if place.Country != "France" {
		t.Errorf("country = %q, want France", place.Country)
	}
	if len(lookup.calls) != 1 {
		t.Errorf("lookup calls = %q, want only the full query", lookup.calls)
	}
}

func TestResolveSingleSegmentLooksUpOnce(t *testing.T) {
	lookup := &recordingLookup{}
	r := placeresolver.NewResolver(lookup)

	_, err := r.Resolve(context.Background(), "Atlantis")
	var nf *placeresolver.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Query != "Atlantis" {
		t.Errorf("NotFoundError.Query = %q, want Atlantis", nf.Query)
	}
	if !errors.Is(err, placeresolver.ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false")
	}
	if len(lookup.calls) != 1 {
		t.Errorf("lookup calls = %q, want one", lookup.calls)
	}
}

func TestResolveNotFoundCarriesNormalizedQuery(t *testing.T) {
	lookup := &recordingLookup{}
	r := placeresolver.NewResolver(lookup)

	_, err := r.Resolve(context.Background(), `  "Nowhere ,   ZZ"  `)
	var nf *placeresolver.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Query != "Nowhere, ZZ" {
		t.Errorf("NotFoundError.Query = %q, want %q", nf.Query, "Nowhere, ZZ")
	}
	if len(lookup.calls) != 2 {
		t.Errorf("lookup calls = %q, want two", lookup.calls)
	}
}

func TestResolveEmptyQuerySkipsLookup(t *testing.T) {
	lookup := &recordingLookup{}
	r := placeresolver.NewResolver(lookup)

	_, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, placeresolver.ErrEmptyQuery) {
		t.Fatalf("error = %v, want ErrEmptyQuery", err)
	}
	if len(lookup.calls) != 0 {
		t.Errorf("lookup called %d times, want 0", len(lookup.calls))
	}
}

func TestResolvePropagatesLookupError(t *testing.T) {
	boom := errors.New("geocoding request failed")
	lookup := &recordingLookup{
		errs: map[string]error{"Paris": boom},
	}
	r := placeresolver.NewResolver(lookup)

	_, err := r.Resolve(context.Background(), "Paris, TX")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
}

func TestSearchAndRetry(t *testing.T) {
	lookup := &recordingLookup{results: map[string][]placeresolver.Candidate{
		"Paris": {parisFrance, parisTexas},
	}}
	r := placeresolver.NewResolver(lookup)
	ctx := context.Background()

	var s placeresolver.Session
	if _, _, err := r.Retry(ctx, s); !errors.Is(err, placeresolver.ErrNothingToRetry) {
		t.Fatalf("Retry on empty session error = %v, want ErrNothingToRetry", err)
	}

	s, _, err := r.Search(ctx, s, "   ")
	if !errors.Is(err, placeresolver.ErrEmptyQuery) {
		t.Fatalf("Search(blank) error = %v, want ErrEmptyQuery", err)
	}
	if s.LastQuery != "" {
		t.Errorf("blank search set LastQuery = %q", s.LastQuery)
	}

	s, _, err = r.Search(ctx, s, "Atlantis")
	if err == nil {
		t.Fatal("Search(Atlantis) succeeded, want not found")
	}
	if s.LastQuery != "Atlantis" || s.LastPlace != nil {
		t.Errorf("after failed search session = %+v, want LastQuery only", s)
	}

	s, place, err := r.Search(ctx, s, " Paris, TX ")
	if err != nil {
		t.Fatal(err)
	}
	if s.LastQuery != "Paris, TX" {
		t.Errorf("LastQuery = %q, want %q", s.LastQuery, "Paris, TX")
	}
	if s.LastPlace == nil || *s.LastPlace != place {
		t.Errorf("LastPlace = %v, want %v", s.LastPlace, place)
	}

	s2, again, err := r.Retry(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if again != place || s2.LastQuery != s.LastQuery {
		t.Errorf("Retry resolved %v (session %+v), want %v", again, s2, place)
	}
}

func TestResolveConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	lookup := placeresolver.LookupFunc(func(_ context.Context, name string) ([]placeresolver.Candidate, error) {
		return []placeresolver.Candidate{parisFrance, parisTexas}, nil
	})
	r := placeresolver.NewResolver(lookup)

	queries := map[string]string{
		"Paris, TX":     "Texas",
		"Paris, France": "Île-de-France",
		"Paris, Texas":  "Texas",
	}

	var wg sync.WaitGroup
	errs := make(chan error, 300)
	for i := 0; i < 100; i++ {
		for q, want := range queries {
			wg.Add(1)
			go func(q, want string) {
				defer wg.Done()
				place, err := r.Resolve(context.Background(), q)
				if err != nil {
					errs <- err
					return
				}
				if place.Admin1 != want {
					errs <- errors.New(q + " resolved to " + place.Label())
				}
			}(q, want)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
