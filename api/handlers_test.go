package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreiashu/placeresolver"
	"github.com/andreiashu/placeresolver/history"
	"github.com/andreiashu/placeresolver/weather"
)

var testCandidates = map[string][]placeresolver.Candidate{
	"paris": {
		{Name: "Paris", Admin1: "Île-de-France", Country: "France", CountryCode: "FR",
			Latitude: 48.85341, Longitude: 2.3488, Timezone: "Europe/Paris", Population: placeresolver.Pop(2_138_551)},
		{Name: "Paris", Admin1: "Texas", Country: "United States", CountryCode: "US",
			Latitude: 33.66094, Longitude: -95.55551, Timezone: "America/Chicago", Population: placeresolver.Pop(25_000)},
	},
	"null island": {
		{Name: "Null Island", Latitude: 0, Longitude: 0},
	},
}

var errLookupDown = errors.New("geocoding service unavailable")

func testLookup(_ context.Context, name string) ([]placeresolver.Candidate, error) {
	name = strings.ToLower(name)
	if name == "boom" {
		return nil, errLookupDown
	}
	return testCandidates[name], nil
}

type testFetcher struct{}

func (testFetcher) Current(_ context.Context, lat, lon float64, units weather.Units) (weather.Current, error) {
	if lat == 0 && lon == 0 {
		return weather.Current{}, weather.ErrMissingData
	}
	temp := 21.0
	if units == weather.Fahrenheit {
		temp = 69.8
	}
	return weather.Current{Temperature: temp, WindSpeed: 4, WeatherCode: 2, Time: "2025-06-01T12:00"}, nil
}

type testNearest struct{}

func (testNearest) Nearest(lat, lon float64) (placeresolver.Candidate, bool) {
	if lat > 48 && lat < 49 {
		return testCandidates["paris"][0], true
	}
	return placeresolver.Candidate{}, false
}

func setupTestRouter(t *testing.T, opts ...Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := placeresolver.NewResolver(placeresolver.LookupFunc(testLookup))
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := weather.NewService(r, testFetcher{}, weather.WithRecorder(store))
	opts = append([]Option{WithHistory(store), WithNearest(testNearest{})}, opts...)
	return NewRouter(NewAPI(r, svc, opts...))
}

func get(t *testing.T, router *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHealthCheckHandler(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagation(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/resolve?q=", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", decodeError(t, w).RequestID)
}

func TestResolveHandler(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedCode   ErrorCode
		expectedAdmin1 string
	}{
		{"fallback picks Texas", "/resolve?q=Paris,+TX", http.StatusOK, "", "Texas"},
		{"plain name picks France", "/resolve?q=Paris", http.StatusOK, "", "Île-de-France"},
		{"empty query", "/resolve?q=+,+", http.StatusBadRequest, ErrorCodeEmptyQuery, ""},
		{"missing query", "/resolve", http.StatusBadRequest, ErrorCodeEmptyQuery, ""},
		{"unknown place", "/resolve?q=Atlantis", http.StatusNotFound, ErrorCodeNotFound, ""},
		{"lookup failure", "/resolve?q=boom", http.StatusBadGateway, ErrorCodeLookupFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.target)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
				return
			}

			var res placeresolver.Resolution
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.expectedAdmin1, res.Place.Admin1)
			assert.Len(t, res.Ranked, 2)
		})
	}
}

func TestResolveHandlerReportsFallback(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/resolve?q=Paris,+TX")
	require.Equal(t, http.StatusOK, w.Code)

	var res placeresolver.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "Paris", res.LookupName)
	assert.Equal(t, placeresolver.TokenSet{"paris", "tx", "texas"}, res.Tokens)
}

func TestWeatherHandler(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedCode   ErrorCode
		expectedUnit   string
	}{
		{"default units", "/weather?q=Paris", http.StatusOK, "", "°F"},
		{"celsius", "/weather?q=Paris&units=celsius", http.StatusOK, "", "°C"},
		{"short celsius", "/weather?q=Paris&units=C", http.StatusOK, "", "°C"},
		{"bad units", "/weather?q=Paris&units=kelvin", http.StatusBadRequest, ErrorCodeInvalidUnits, ""},
		{"empty query", "/weather?q=", http.StatusBadRequest, ErrorCodeEmptyQuery, ""},
		{"not found", "/weather?q=Atlantis", http.StatusNotFound, ErrorCodeNotFound, ""},
		{"fetch failure", "/weather?q=Null+Island", http.StatusBadGateway, ErrorCodeWeatherFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.target)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
				return
			}

			var report weather.Report
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
			assert.Equal(t, tt.expectedUnit, report.TempUnit)
			assert.Equal(t, "Partly cloudy", report.Condition)
			assert.Equal(t, "Paris, Île-de-France, France", report.PlaceLabel)
		})
	}
}

func TestWeatherHandlerDefaultUnitsOption(t *testing.T) {
	router := setupTestRouter(t, WithDefaultUnits(weather.Celsius))

	w := get(t, router, "/weather?q=Paris")
	require.Equal(t, http.StatusOK, w.Code)

	var report weather.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "°C", report.TempUnit)
	assert.InDelta(t, 21.0, report.Temperature, 1e-9)
}

func TestLatestWeatherHandler(t *testing.T) {
	router := setupTestRouter(t)

	w := get(t, router, "/weather/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeNoReport, decodeError(t, w).Code)

	require.Equal(t, http.StatusOK, get(t, router, "/weather?q=Paris,+TX").Code)

	w = get(t, router, "/weather/latest")
	require.Equal(t, http.StatusOK, w.Code)
	var report weather.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "Texas", report.Place.Admin1)
}

func TestHistoryHandler(t *testing.T) {
	router := setupTestRouter(t)

	for _, q := range []string{"Paris", "Paris, TX", "Atlantis"} {
		get(t, router, "/weather?q="+url.QueryEscape(q))
	}

	w := get(t, router, "/history?limit=10")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Searches []history.Entry `json:"searches"`
		Total    int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 3, body.Total)
	assert.Equal(t, "Atlantis", body.Searches[0].Query)
	assert.True(t, body.Searches[0].Failed)
	assert.Empty(t, body.Searches[0].Place.Name)
	assert.Empty(t, body.Searches[0].Geohash)
	assert.Equal(t, "Paris, TX", body.Searches[1].Query)
	assert.False(t, body.Searches[1].Failed)
	assert.Equal(t, "Texas", body.Searches[1].Place.Admin1)

	for _, bad := range []string{"0", "-1", "abc", "1000"} {
		w := get(t, router, "/history?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", bad)
	}
}

func TestHistoryHandlerDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := placeresolver.NewResolver(placeresolver.LookupFunc(testLookup))
	router := NewRouter(NewAPI(r, weather.NewService(r, testFetcher{})))

	w := get(t, router, "/history")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, ErrorCodeHistoryDisabled, decodeError(t, w).Code)

	w = get(t, router, "/nearest?lat=48.8&lon=2.3")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestNearestHandler(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{"found", "/nearest?lat=48.85&lon=2.35", http.StatusOK},
		{"nothing nearby", "/nearest?lat=0&lon=-160", http.StatusNotFound},
		{"missing lat", "/nearest?lon=2.35", http.StatusBadRequest},
		{"lat out of range", "/nearest?lat=91&lon=0", http.StatusBadRequest},
		{"nan", "/nearest?lat=NaN&lon=0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.target)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	w := get(t, router, "/nearest?lat=48.85&lon=2.35")
	var body struct {
		Place placeresolver.ResolvedPlace `json:"place"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Europe/Paris", body.Place.Timezone)
}
