package main

import (
	"fmt"
	"html/template"
	"os"
	"text/tabwriter"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/report"
	"github.com/signalrefinery/refinery/internal/ui"
	"github.com/signalrefinery/refinery/pkg/models"
	"github.com/signalrefinery/refinery/pkg/utils"
	"github.com/signalrefinery/refinery/web"
)

// statementFlag reads --statement, falling back to the configured default.
func statementFlag(cmd *cobra.Command) (models.StatementType, error) {
	v, _ := cmd.Flags().GetString("statement")
	if v == "" {
		v = cfg.UI.DefaultStatement
	}
	return models.ParseStatementType(v)
}

// --- Filings Command ---

var filingsCmd = &cobra.Command{
	Use:   "filings [symbol]",
	Short: "Fetch a company's 10-K and 10-Q filings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		ctl := newController("")
		err := ctl.Filings.Submit(ctx, args[0])
		view, _, _ := ctl.Session.Snapshot()
		if rerr := textRenderer().Filings(view.Filings); rerr != nil {
			return rerr
		}
		return shown(err)
	},
}

// --- Extract Command ---

var extractCmd = &cobra.Command{
	Use:   "extract [symbol]",
	Short: "Extract financial metrics from stored filings, then show a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := statementFlag(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		ctl := newController(st)
		err = ctl.Extraction.Submit(ctx, args[0])
		view, _, _ := ctl.Session.Snapshot()
		if rerr := textRenderer().Financials(view.Financials); rerr != nil {
			return rerr
		}
		return shown(err)
	},
}

// --- Financials Command ---

var financialsCmd = &cobra.Command{
	Use:   "financials [symbol]",
	Short: "Show one financial statement for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := statementFlag(cmd)
		if err != nil {
			return err
		}
		sym, err := utils.ValidateSymbol(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		ctl := newController(st)
		err = ctl.Statements.Load(ctx, sym, st)
		view, _, _ := ctl.Session.Snapshot()
		if rerr := textRenderer().Financials(view.Financials); rerr != nil {
			return rerr
		}
		return shown(err)
	},
}

func init() {
	for _, c := range []*cobra.Command{extractCmd, financialsCmd} {
		c.Flags().String("statement", "", "statement type: income_statement, balance_sheet or cash_flow")
	}
}

// --- Revenue Command ---

var revenueCmd = &cobra.Command{
	Use:   "revenue [symbol]",
	Short: "Chart a company's revenue by period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ft, _ := cmd.Flags().GetString("filing-type")
		svgPath, _ := cmd.Flags().GetString("svg")
		ctx, cancel := requestContext(cmd)
		defer cancel()

		ctl := newController("")
		err := ctl.Revenue.Submit(ctx, args[0], models.FilingType(ft))
		view, _, _ := ctl.Session.Snapshot()
		if rerr := textRenderer().Revenue(view.Revenue); rerr != nil {
			return rerr
		}
		if err != nil {
			return shown(err)
		}

		if svgPath != "" && view.Revenue.Chart != nil {
			chartCfg := report.DefaultChartConfig()
			chartCfg.Title = view.Revenue.Chart.Title
			svg := report.BarChart(*view.Revenue.Chart, chartCfg)
			if err := os.WriteFile(svgPath, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Printf("\n  Chart written to %s\n", svgPath)
		}
		return nil
	},
}

func init() {
	revenueCmd.Flags().String("filing-type", string(models.Form10Q), "10-K or 10-Q")
	revenueCmd.Flags().String("svg", "", "also write the bar chart as SVG to this file")
}

// --- Health Command ---

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the backend once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		ctl := newController("")
		h := ui.NewHealthMonitor(backend, ctl.Session, cfg.UI.HealthInterval, log).Probe(ctx)
		if err := textRenderer().Health(h); err != nil {
			return err
		}
		if !h.Healthy {
			return errShown
		}
		return nil
	},
}

// --- Tickers Command ---

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "List, add and analyze tracked tickers",
}

var tickersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked tickers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		res := backend.ListTickers(ctx)
		if !res.Ok() {
			return fmt.Errorf("list tickers: %s", res.Message())
		}
		if len(res.Data) == 0 {
			fmt.Println("No tickers tracked.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMBOL\tPRICE\tMARKET CAP")
		for _, t := range res.Data {
			fmt.Fprintf(tw, "%s\t%.2f\t%s\n", t.Symbol, t.Price, utils.FormatUSDCompact(t.MarketCap))
		}
		return tw.Flush()
	},
}

var tickersAddCmd = &cobra.Command{
	Use:   "add [symbol]",
	Short: "Start tracking a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sym, err := utils.ValidateSymbol(args[0])
		if err != nil {
			return err
		}
		price, _ := cmd.Flags().GetFloat64("price")
		marketCap, _ := cmd.Flags().GetFloat64("market-cap")
		ctx, cancel := requestContext(cmd)
		defer cancel()

		res := backend.AddTicker(ctx, models.Ticker{Symbol: sym, Price: price, MarketCap: marketCap})
		if !res.Ok() {
			return fmt.Errorf("add ticker: %s", res.Message())
		}
		fmt.Printf("Tracking %s (price %.2f, market cap %s)\n",
			res.Data.Symbol, res.Data.Price, utils.FormatUSDCompact(res.Data.MarketCap))
		return nil
	},
}

var tickersAnalyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Ask the backend for a buy/hold signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sym, err := utils.ValidateSymbol(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		res := backend.AnalyzeTicker(ctx, sym)
		if !res.Ok() {
			return fmt.Errorf("analyze %s: %s", sym, res.Message())
		}
		a := res.Data
		if !a.Found() {
			fmt.Println(a.Message)
			return nil
		}
		fmt.Printf("%s: %s\n", a.Symbol, a.Signal)
		fmt.Printf("  Reason:      %s\n", a.Reason)
		fmt.Printf("  Price:       %.2f\n", a.Price)
		fmt.Printf("  Market cap:  %s\n", utils.FormatUSDCompact(a.MarketCap))
		if a.LastFilingDate != "" {
			fmt.Printf("  Last filing: %s\n", a.LastFilingDate)
		}
		return nil
	},
}

func init() {
	tickersAddCmd.Flags().Float64("price", 0, "last price")
	tickersAddCmd.Flags().Float64("market-cap", 0, "market capitalization in USD")
	tickersCmd.AddCommand(tickersListCmd, tickersAddCmd, tickersAnalyzeCmd)
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report [symbol]",
	Short: "Write a static dashboard snapshot (HTML, or PDF when an engine is installed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sym, err := utils.ValidateSymbol(args[0])
		if err != nil {
			return err
		}
		st, err := statementFlag(cmd)
		if err != nil {
			return err
		}
		ft, _ := cmd.Flags().GetString("filing-type")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = sym + "-report.html"
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		// The panels are independent; each orchestrator reports its own
		// failure in its panel.
		ctl := newController(st)
		var wg conc.WaitGroup
		wg.Go(func() { _ = ctl.Filings.Submit(ctx, sym) })
		wg.Go(func() { _ = ctl.Statements.Load(ctx, sym, st) })
		wg.Go(func() { _ = ctl.Revenue.Submit(ctx, sym, models.FilingType(ft)) })
		wg.Go(func() {
			ui.NewHealthMonitor(backend, ctl.Session, cfg.UI.HealthInterval, log).Probe(ctx)
		})
		wg.Wait()

		page := ctl.Session.Page(false)
		page.Title = report.DefaultTitle + ": " + sym
		page.Stylesheet = template.CSS(web.Stylesheet())
		html, err := report.GenerateHTML(page)
		if err != nil {
			return err
		}
		written, err := report.WriteSnapshot(html, out)
		if err != nil {
			return err
		}
		log.Debug("snapshot written", zap.String("path", written))
		fmt.Printf("Report written to %s\n", written)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("out", "", "output file; a .pdf extension converts with wkhtmltopdf or chromium")
	reportCmd.Flags().String("statement", "", "statement type for the financials panel")
	reportCmd.Flags().String("filing-type", string(models.Form10Q), "filing type for the revenue chart")
}
