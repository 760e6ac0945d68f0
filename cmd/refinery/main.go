// Signal Refinery: SEC filings, financial statements and revenue trends
// from the refinery backend, in the terminal or a live dashboard.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/client"
	"github.com/signalrefinery/refinery/internal/config"
	"github.com/signalrefinery/refinery/internal/logging"
	"github.com/signalrefinery/refinery/internal/report"
	"github.com/signalrefinery/refinery/internal/ui"
	"github.com/signalrefinery/refinery/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals set up by the root command.
var (
	cfg     *config.Config
	log     *zap.Logger
	backend *client.Client
)

// errShown marks a failure already printed as part of a panel.
var errShown = errors.New("command failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		if !errors.Is(err, errShown) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "refinery",
	Short: "Signal Refinery: SEC filings and financials from the terminal",
	Long: `Signal Refinery fetches 10-K and 10-Q filings through the refinery backend,
extracts their financial statements and charts revenue over time.

Run a single command against the backend, serve the live dashboard, or watch
SEC EDGAR for new filings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if v, _ := cmd.Flags().GetString("backend"); v != "" {
			cfg.Backend.BaseURL = v
		}
		if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
			cfg.Backend.Timeout = v
		}
		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			cfg.Logging.Level = v
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log, err = logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(log)

		backend = client.New(cfg.Backend.BaseURL,
			client.WithTimeout(cfg.Backend.Timeout),
			client.WithLogger(log))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/refinery.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "backend base URL override")
	rootCmd.PersistentFlags().Duration("timeout", 0, "backend request timeout override (e.g. 45s)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(filingsCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(financialsCmd)
	rootCmd.AddCommand(revenueCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(tickersCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

// newController returns a one-shot session for a terminal command.
func newController(st models.StatementType) *ui.Controller {
	if st == "" {
		st = models.StatementType(cfg.UI.DefaultStatement)
	}
	return ui.NewController(backend, ui.Options{
		Format:           report.Formatter{DateLayout: cfg.UI.DateLayout},
		DefaultStatement: st,
		Logger:           log,
	})
}

// textRenderer writes to stdout, in color when stdout is a terminal.
func textRenderer() *report.TextRenderer {
	fd := os.Stdout.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return report.NewTextRenderer(os.Stdout, report.TextOptions{Color: color})
}

// shown turns an orchestrator failure into errShown once its panel printed
// the message. A superseded run is not a failure.
func shown(err error) error {
	if err == nil || errors.Is(err, ui.ErrSuperseded) {
		return nil
	}
	return errShown
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("refinery %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration sources and backend health",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Signal Refinery System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		file := cfg.File()
		if file == "" {
			file = "(none, defaults and environment)"
		}
		fmt.Printf("  Config file: %s\n", file)
		fmt.Printf("  Backend:     %s (timeout %s)\n", cfg.Backend.BaseURL, cfg.Backend.Timeout)
		fmt.Printf("  Dashboard:   http://%s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  Settings:")
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, s := range config.CheckSettings(cfg) {
			value := s.Value
			if !s.IsSet {
				value = "(not set)"
			}
			fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\n", s.Key, value, s.Source, config.EnvVar(s.Key))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Println()

		ctl := newController("")
		h := ui.NewHealthMonitor(backend, ctl.Session, cfg.UI.HealthInterval, log).Probe(cmd.Context())
		if err := textRenderer().Health(h); err != nil {
			return err
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

// requestContext bounds a one-shot command by the backend timeout plus a
// margin for chained calls.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 3*cfg.Backend.Timeout+5*time.Second)
}
