// Command placeresolver resolves free-form place names and shows the
// current weather for them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andreiashu/placeresolver"
	"github.com/andreiashu/placeresolver/config"
	"github.com/andreiashu/placeresolver/gazetteer"
	"github.com/andreiashu/placeresolver/history"
	"github.com/andreiashu/placeresolver/openmeteo"
	"github.com/andreiashu/placeresolver/weather"
)

// cli holds global flags and the lazily built dependencies.
type cli struct {
	configPath string
	verbose    bool
	offline    bool
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
}

// app is everything a command needs, built from config.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	resolver *placeresolver.Resolver
	service  *weather.Service
	gaz      *gazetteer.Gazetteer // nil unless offline
	store    *history.Store       // nil when history is disabled
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing history", zap.Error(err))
		}
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "placeresolver",
		Short: "Resolve place names and show their current weather",
		Long: `placeresolver turns a free-form location such as "Paris, TX" into one
place, using the Open-Meteo geocoding API or an offline Geonames gazetteer,
and fetches the current weather for it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if c.offline {
				cfg.Gazetteer.Enabled = true
			}
			c.cfg = cfg

			zcfg := zap.NewProductionConfig()
			level, err := zapcore.ParseLevel(cfg.Logging.Level)
			if err != nil {
				level = zapcore.InfoLevel
			}
			if c.verbose {
				level = zapcore.DebugLevel
			}
			zcfg.Level = zap.NewAtomicLevelAt(level)
			c.logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "placeresolver.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&c.offline, "offline", false, "Use the offline Geonames gazetteer instead of the geocoding API")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(
		c.resolveCmd(),
		c.weatherCmd(),
		c.retryCmd(),
		c.historyCmd(),
		c.nearCmd(),
		c.serveCmd(),
	)
	return rootCmd
}

// commandContext returns the command context bounded by --timeout.
func (c *cli) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, c.timeout)
}

// buildApp wires lookup, fetcher and history from config.
func (c *cli) buildApp() (*app, error) {
	a := &app{cfg: c.cfg, logger: c.logger}

	var lookup placeresolver.Lookup
	if c.cfg.Gazetteer.Enabled {
		gaz, err := c.loadGazetteer()
		if err != nil {
			return nil, err
		}
		a.gaz = gaz
		lookup = gaz
	} else {
		lookup = openmeteo.NewGeocodingClient(
			openmeteo.WithBaseURL(c.cfg.Geocoding.BaseURL),
			openmeteo.WithCount(c.cfg.Geocoding.Count),
			openmeteo.WithLanguage(c.cfg.Geocoding.Language),
			openmeteo.WithTimeout(c.cfg.GetGeocodingTimeout()),
			openmeteo.WithLogger(c.logger.Named("geocoding")),
		)
	}

	fetcher := openmeteo.NewForecastClient(
		openmeteo.WithBaseURL(c.cfg.Forecast.BaseURL),
		openmeteo.WithTimeout(c.cfg.GetForecastTimeout()),
		openmeteo.WithLogger(c.logger.Named("forecast")),
	)

	a.resolver = placeresolver.NewResolver(lookup, placeresolver.WithLogger(c.logger.Named("resolver")))

	opts := []weather.ServiceOption{weather.WithServiceLogger(c.logger.Named("weather"))}
	if c.cfg.History.Path != "" {
		store, err := history.Open(c.cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.store = store
		opts = append(opts, weather.WithRecorder(store))
	}
	a.service = weather.NewService(a.resolver, fetcher, opts...)
	return a, nil
}

func (c *cli) loadGazetteer() (*gazetteer.Gazetteer, error) {
	start := time.Now()
	gaz, err := gazetteer.New(
		gazetteer.WithDataDir(c.cfg.Gazetteer.DataDir),
		gazetteer.WithCacheDir(c.cfg.Gazetteer.CacheDir),
		gazetteer.WithFuzzyDistance(c.cfg.Gazetteer.FuzzyDistance),
		gazetteer.WithMaxResults(c.cfg.Gazetteer.MaxResults),
	)
	if err != nil {
		return nil, fmt.Errorf("loading gazetteer: %w", err)
	}
	c.logger.Debug("gazetteer loaded",
		zap.Int("places", len(gaz.Places)),
		zap.Duration("elapsed", time.Since(start)))
	return gaz, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, placeresolver.ErrNotFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
