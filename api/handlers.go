// Package api serves the resolver and weather lookups over HTTP.
package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andreiashu/placeresolver"
	"github.com/andreiashu/placeresolver/history"
	"github.com/andreiashu/placeresolver/weather"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryLister lists recent searches. *history.Store satisfies it.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// NearestFinder finds the place closest to a coordinate.
// *gazetteer.Gazetteer satisfies it.
type NearestFinder interface {
	Nearest(lat, lon float64) (placeresolver.Candidate, bool)
}

// Option is a functional option for configuring the API.
type Option func(*API)

// WithHistory enables GET /history.
func WithHistory(h HistoryLister) Option {
	return func(a *API) { a.history = h }
}

// WithNearest enables GET /nearest.
func WithNearest(n NearestFinder) Option {
	return func(a *API) { a.nearest = n }
}

// WithDefaultUnits sets the units used when a request names none.
func WithDefaultUnits(u weather.Units) Option {
	return func(a *API) { a.units = u }
}

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// API holds dependencies for API handlers.
type API struct {
	resolver *placeresolver.Resolver
	weather  *weather.Service
	history  HistoryLister
	nearest  NearestFinder
	units    weather.Units
	logger   *zap.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(r *placeresolver.Resolver, svc *weather.Service, opts ...Option) *API {
	a := &API{
		resolver: r,
		weather:  svc,
		units:    weather.Fahrenheit,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewRouter returns a gin engine with middleware and all routes installed.
func NewRouter(a *API) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggingMiddleware(a.logger), gin.Recovery())
	a.SetupRoutes(router)
	return router
}

// SetupRoutes defines all the API routes.
func (a *API) SetupRoutes(router *gin.Engine) {
	router.GET("/health", a.HealthCheckHandler)
	router.GET("/resolve", a.ResolveHandler)
	router.GET("/nearest", a.NearestHandler)
	router.GET("/history", a.HistoryHandler)

	weatherRoutes := router.Group("/weather")
	{
		weatherRoutes.GET("", a.WeatherHandler)
		weatherRoutes.GET("/latest", a.LatestWeatherHandler)
	}
}

// HealthCheckHandler provides a simple health check endpoint
func (a *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "placeresolver",
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	})
}

// ResolveHandler resolves ?q= and returns the place with the full ranking.
func (a *API) ResolveHandler(c *gin.Context) {
	res, err := a.resolver.Explain(c.Request.Context(), c.Query("q"))
	if err != nil {
		a.logger.Debug("resolve failed", zap.String("q", c.Query("q")), zap.Error(err))
		sendSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// WeatherHandler resolves ?q= and returns its current weather in ?units=.
func (a *API) WeatherHandler(c *gin.Context) {
	units := a.units
	if raw := c.Query("units"); raw != "" {
		u, err := weather.ParseUnits(raw)
		if err != nil {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidUnits,
				"units must be celsius or fahrenheit, got '"+raw+"'")
			return
		}
		units = u
	}

	_, report, err := a.weather.Search(c.Request.Context(), placeresolver.Session{}, c.Query("q"), units)
	if err != nil {
		a.logger.Debug("weather search failed", zap.String("q", c.Query("q")), zap.Error(err))
		sendSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// LatestWeatherHandler returns the newest published weather report.
func (a *API) LatestWeatherHandler(c *gin.Context) {
	report, ok := a.weather.Latest()
	if !ok {
		SendError(c, http.StatusNotFound, ErrorCodeNoReport, "no weather report yet")
		return
	}
	c.JSON(http.StatusOK, report)
}

// HistoryHandler lists recent searches, newest first.
func (a *API) HistoryHandler(c *gin.Context) {
	if a.history == nil {
		SendError(c, http.StatusNotImplemented, ErrorCodeHistoryDisabled, "search history is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidLimit,
				"limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	entries, err := a.history.Recent(c.Request.Context(), limit)
	if err != nil {
		a.logger.Error("listing history", zap.Error(err))
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
			"Internal error during history listing: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"searches": entries,
		"total":    len(entries),
	})
}

// NearestHandler returns the place closest to ?lat=&lon=.
func (a *API) NearestHandler(c *gin.Context) {
	if a.nearest == nil {
		SendError(c, http.StatusNotImplemented, ErrorCodeNearbyDisabled, "nearest lookup needs the offline gazetteer")
		return
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidLocation,
			"lat must be in [-90, 90] and lon in [-180, 180]")
		return
	}

	cand, ok := a.nearest.Nearest(lat, lon)
	if !ok {
		SendError(c, http.StatusNotFound, ErrorCodeNotFound, "no place within range")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"candidate": cand,
		"place":     cand.Place(),
	})
}
