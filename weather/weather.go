// Package weather fetches current conditions for a resolved place and keeps
// the newest report for display.
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andreiashu/placeresolver"
)

var (
	// ErrMissingData is returned when a forecast response has no current block.
	ErrMissingData = errors.New("weather data missing")

	// ErrNoPlace is returned by Refresh when the session has no resolved place.
	ErrNoPlace = errors.New("no place to refresh")

	// ErrInvalidUnits is returned by ParseUnits for anything but celsius or fahrenheit.
	ErrInvalidUnits = errors.New("invalid temperature units")
)

// FetchError is returned when the weather for a resolved place could not be
// fetched. The place itself was found.
type FetchError struct {
	Place string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching weather for %s: %v", e.Place, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Units selects the temperature unit.
type Units string

const (
	Celsius    Units = "celsius"
	Fahrenheit Units = "fahrenheit"
)

// WindUnit is the unit wind speed is requested and reported in.
const WindUnit = "mph"

// ParseUnits accepts "celsius"/"c" and "fahrenheit"/"f", case-insensitively.
// An empty string means Fahrenheit.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "celsius", "c":
		return Celsius, nil
	case "fahrenheit", "f", "":
		return Fahrenheit, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnits, s)
}

// Symbol returns the display suffix for the unit.
func (u Units) Symbol() string {
	if u == Celsius {
		return "°C"
	}
	return "°F"
}

// Current is the current-conditions block of a forecast.
type Current struct {
	Temperature float64 `json:"temperature_2m"`
	WindSpeed   float64 `json:"wind_speed_10m"`
	WeatherCode int     `json:"weather_code"`
	Time        string  `json:"time"`
}

// Fetcher returns current conditions at a coordinate.
type Fetcher interface {
	Current(ctx context.Context, lat, lon float64, units Units) (Current, error)
}

// Report is what gets shown for one search.
type Report struct {
	Place       placeresolver.ResolvedPlace `json:"place"`
	PlaceLabel  string                      `json:"place_label"`
	Temperature float64                     `json:"temperature"`
	TempUnit    string                      `json:"temp_unit"`
	WindSpeed   float64                     `json:"wind_speed"`
	WindUnit    string                      `json:"wind_unit"`
	Condition   string                      `json:"condition"`
	Time        string                      `json:"time"`
}

// NewReport combines a place and its current conditions.
func NewReport(place placeresolver.ResolvedPlace, cur Current, units Units) Report {
	return Report{
		Place:       place,
		PlaceLabel:  place.Label(),
		Temperature: cur.Temperature,
		TempUnit:    units.Symbol(),
		WindSpeed:   cur.WindSpeed,
		WindUnit:    WindUnit,
		Condition:   CodeLabel(cur.WeatherCode),
		Time:        cur.Time,
	}
}

// String renders the report on one line, rounding like the original panel.
func (r Report) String() string {
	return fmt.Sprintf("%s: %.0f%s, %s, wind %.0f %s (updated %s)",
		r.PlaceLabel, r.Temperature, r.TempUnit, r.Condition, r.WindSpeed, r.WindUnit, r.Time)
}

// codeLabels maps Open-Meteo (WMO) weather codes to labels.
var codeLabels = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	80: "Rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
}

// CodeLabel returns a short label for a weather code.
func CodeLabel(code int) string {
	if label, ok := codeLabels[code]; ok {
		return label
	}
	return fmt.Sprintf("Weather code %d", code)
}
