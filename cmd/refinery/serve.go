package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signalrefinery/refinery/api"
	"github.com/signalrefinery/refinery/internal/feed"
	"github.com/signalrefinery/refinery/internal/ui"
)

// --- Serve Command (Dashboard) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live dashboard",
	Long: `Start the browser dashboard. Each visitor gets a session; panel updates
are pushed over a websocket. The backend health badge refreshes every
ui.health_interval and, with feed.enabled, new EDGAR filings for
feed.symbols trigger a filing fetch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		srv := api.NewServer(cfg, backend, log)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.Addr())
		})
		g.Go(func() error {
			return ui.NewHealthMonitor(backend, srv.Sessions(), cfg.UI.HealthInterval, log).Run(ctx)
		})
		if cfg.Feed.Enabled {
			w, err := feed.New(cfg.Feed, srv.OnNewFiling, feed.WithLogger(log))
			if err != nil {
				return err
			}
			g.Go(func() error { return w.Run(ctx) })
		}

		fmt.Printf("Dashboard on http://%s (backend %s)\n", cfg.Addr(), cfg.Backend.BaseURL)
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port override")
}

// --- Watch Command (EDGAR feed only) ---

var watchCmd = &cobra.Command{
	Use:   "watch [symbols...]",
	Short: "Watch SEC EDGAR for new 10-K/10-Q filings and fetch them",
	Long: `Poll the SEC EDGAR company feeds of the given symbols (or feed.symbols)
every feed.interval. The first poll only records what is already
published; every later new filing runs a filing fetch and prints the result.
feed.user_agent must name you and a contact address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		feedCfg := cfg.Feed
		if len(args) > 0 {
			feedCfg.Symbols = args
		}
		if len(feedCfg.Symbols) == 0 {
			return fmt.Errorf("no symbols to watch: pass them as arguments or set feed.symbols")
		}
		once, _ := cmd.Flags().GetBool("once")

		renderer := textRenderer()
		onNew := func(ctx context.Context, e feed.Entry) {
			fmt.Printf("\nNew %s for %s: %s\n  %s\n", e.Form, e.Symbol, e.Title, e.Link)
			ctl := newController("")
			err := ctl.Filings.Submit(ctx, e.Symbol)
			view, _, _ := ctl.Session.Snapshot()
			if rerr := renderer.Filings(view.Filings); rerr != nil {
				log.Warn("render filings", zap.Error(rerr))
			}
			if err != nil {
				log.Debug("filing fetch after feed entry failed", zap.String("symbol", e.Symbol), zap.Error(err))
			}
		}

		w, err := feed.New(feedCfg, onNew, feed.WithLogger(log))
		if err != nil {
			return err
		}
		if once {
			entries, err := w.Poll(cmd.Context())
			fmt.Printf("Recorded the current filings of %d symbol(s); %d new.\n", len(w.Symbols()), len(entries))
			return err
		}
		fmt.Printf("Watching %v every %s\n", w.Symbols(), feedCfg.Interval)
		return w.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().Bool("once", false, "poll once and exit")
}
