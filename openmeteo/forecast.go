package openmeteo

import (
	"context"
	"net/url"
	"strconv"

	"github.com/andreiashu/placeresolver/weather"
)

// currentFields are the current-condition variables requested.
const currentFields = "temperature_2m,wind_speed_10m,weather_code"

// ForecastClient fetches current conditions. It implements weather.Fetcher.
type ForecastClient struct {
	cfg *clientConfig
}

// NewForecastClient creates a client for the Open-Meteo forecast API.
func NewForecastClient(opts ...Option) *ForecastClient {
	return &ForecastClient{cfg: newConfig(DefaultForecastURL, opts)}
}

type forecastResponse struct {
	Current *weather.Current `json:"current"`
}

// Current returns the current conditions at lat/lon. Temperature is in the
// requested units, wind speed in mph.
func (c *ForecastClient) Current(ctx context.Context, lat, lon float64, units weather.Units) (weather.Current, error) {
	if units == "" {
		units = weather.Fahrenheit
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current", currentFields)
	params.Set("timezone", "auto")
	params.Set("temperature_unit", string(units))
	params.Set("wind_speed_unit", weather.WindUnit)

	var resp forecastResponse
	if err := c.cfg.getJSON(ctx, "/v1/forecast", params, &resp); err != nil {
		return weather.Current{}, err
	}
	if resp.Current == nil {
		return weather.Current{}, weather.ErrMissingData
	}
	return *resp.Current, nil
}
