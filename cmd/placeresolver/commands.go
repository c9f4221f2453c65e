package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreiashu/placeresolver"
	"github.com/andreiashu/placeresolver/api"
	"github.com/andreiashu/placeresolver/weather"
)

// maxParallelResolves bounds concurrent lookups for `resolve a b c`.
const maxParallelResolves = 4

func (c *cli) resolveCmd() *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "resolve QUERY...",
		Short: "Resolve one or more place queries",
		Long: `Resolves each query to a single place. Queries run in parallel and
results are printed in argument order.

Example:
  placeresolver resolve "Paris, TX" "Springfield, IL" --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.commandContext(cmd)
			defer cancel()

			a, err := c.buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results := make([]placeresolver.Resolution, len(args))
			errs := make([]error, len(args))

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(maxParallelResolves)
			for i, q := range args {
				g.Go(func() error {
					results[i], errs[i] = a.resolver.Explain(gctx, q)
					return nil
				})
			}
			_ = g.Wait()

			out := cmd.OutOrStdout()
			for i, q := range args {
				if errs[i] != nil {
					fmt.Fprintf(out, "%s: %v\n", q, errs[i])
					continue
				}
				printResolution(out, q, results[i], explain)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "Show tokens and the full candidate ranking")
	return cmd
}

func printResolution(w io.Writer, query string, res placeresolver.Resolution, explain bool) {
	p := res.Place
	fmt.Fprintf(w, "%s -> %s (%.4f, %.4f, %s)\n", query, p.Label(), p.Lat, p.Lon, p.Timezone)
	if !explain {
		return
	}

	fmt.Fprintf(w, "  tokens: %s\n", strings.Join(res.Tokens, ", "))
	fmt.Fprintf(w, "  lookup: %q", res.LookupName)
	if res.UsedFallback {
		fmt.Fprint(w, " (fallback)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tSCORE\tPLACE\tPOPULATION")
	for i, sc := range res.Ranked {
		pop := "-"
		if sc.Candidate.Population != nil {
			pop = strconv.FormatInt(*sc.Candidate.Population, 10)
		}
		fmt.Fprintf(tw, "  %d\t%.2f\t%s\t%s\n", i+1, sc.Score, sc.Candidate.Place().Label(), pop)
	}
	tw.Flush()
}

func (c *cli) weatherCmd() *cobra.Command {
	var units string

	cmd := &cobra.Command{
		Use:   "weather QUERY",
		Short: "Show the current weather for a place",
		Long: `Resolves the query and prints the current conditions.

Example:
  placeresolver weather "Paris, TX" --units celsius`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.units(units)
			if err != nil {
				return err
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()

			a, err := c.buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			_, report, err := a.service.Search(ctx, placeresolver.Session{}, strings.Join(args, " "), u)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&units, "units", "u", "", "celsius or fahrenheit (default from config)")
	return cmd
}

func (c *cli) retryCmd() *cobra.Command {
	var units string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Repeat the last weather search, including one that failed",
		Long: `Reads the newest entry of the search history and runs it again,
optionally in other units.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.units(units)
			if err != nil {
				return err
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()

			a, err := c.buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.store == nil {
				return errors.New("retry needs search history (history.path is empty)")
			}
			sess, err := a.store.Session(ctx)
			if err != nil {
				return err
			}
			_, report, err := a.service.Retry(ctx, sess, u)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&units, "units", "u", "", "celsius or fahrenheit (default from config)")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.commandContext(cmd)
			defer cancel()

			a, err := c.buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.store == nil {
				return errors.New("search history is disabled (history.path is empty)")
			}
			entries, err := a.store.Recent(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tQUERY\tPLACE\tSTATUS\tGEOHASH")
			for _, e := range entries {
				place, status, hash := "-", "ok", e.Geohash
				if e.HasPlace() {
					place = e.Place.Label()
				}
				if e.Failed {
					status = "failed"
				}
				if hash == "" {
					hash = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Query, place, status, hash)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of searches to show")
	return cmd
}

func (c *cli) nearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "near LAT LON",
		Short: "Find the place nearest to a coordinate (offline gazetteer)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil || lat < -90 || lat > 90 {
				return fmt.Errorf("invalid latitude %q", args[0])
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil || lon < -180 || lon > 180 {
				return fmt.Errorf("invalid longitude %q", args[1])
			}

			gaz, err := c.loadGazetteer()
			if err != nil {
				return err
			}
			cand, ok := gaz.Nearest(lat, lon)
			if !ok {
				return fmt.Errorf("no place within 100km of %v, %v", lat, lon)
			}
			p := cand.Place()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%.4f, %.4f, %s)\n", p.Label(), p.Lat, p.Lon, p.Timezone)
			return nil
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver and weather lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			opts := []api.Option{
				api.WithLogger(a.logger.Named("api")),
				api.WithDefaultUnits(a.cfg.GetUnits()),
			}
			if a.store != nil {
				opts = append(opts, api.WithHistory(a.store))
			}
			if a.gaz != nil {
				opts = append(opts, api.WithNearest(a.gaz))
			}

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(api.NewAPI(a.resolver, a.service, opts...)),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return serve(ctx, srv, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// units parses a --units flag, falling back to the configured default.
func (c *cli) units(flag string) (weather.Units, error) {
	if flag == "" {
		return c.cfg.GetUnits(), nil
	}
	return weather.ParseUnits(flag)
}
