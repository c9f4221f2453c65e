package openmeteo

import (
	"context"
	"net/url"
	"slices"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/andreiashu/placeresolver"
)

// GeocodingClient looks up place names. It implements placeresolver.Lookup.
// Concurrent lookups of the same name share one request.
type GeocodingClient struct {
	cfg   *clientConfig
	group singleflight.Group
}

// NewGeocodingClient creates a client for the Open-Meteo geocoding API.
func NewGeocodingClient(opts ...Option) *GeocodingClient {
	return &GeocodingClient{cfg: newConfig(DefaultGeocodingURL, opts)}
}

type geocodingResponse struct {
	Results []placeresolver.Candidate `json:"results"`
}

// Lookup returns the candidates for name in the service's ranking order.
// A name with no match returns an empty slice and no error.
func (c *GeocodingClient) Lookup(ctx context.Context, name string) ([]placeresolver.Candidate, error) {
	ch := c.group.DoChan(name, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others;
		// the HTTP client timeout still applies.
		return c.search(context.WithoutCancel(ctx), name)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]placeresolver.Candidate)), nil
	}
}

func (c *GeocodingClient) search(ctx context.Context, name string) ([]placeresolver.Candidate, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", strconv.Itoa(c.cfg.count))
	params.Set("language", c.cfg.language)
	params.Set("format", "json")

	var resp geocodingResponse
	if err := c.cfg.getJSON(ctx, "/v1/search", params, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []placeresolver.Candidate{}, nil
	}
	return resp.Results, nil
}
