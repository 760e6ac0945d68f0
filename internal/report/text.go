package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/signalrefinery/refinery/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Text Renderer: terminal output for the CLI
// ════════════════════════════════════════════════════════════════════

// TextOptions controls terminal rendering.
type TextOptions struct {
	Color    bool // ANSI colors for errors and status
	BarWidth int  // widest revenue bar in cells (default: 40)
}

const (
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

var (
	line     = strings.Repeat("═", 60)
	thinLine = strings.Repeat("─", 60)
	printer  = message.NewPrinter(language.English)
)

// TextRenderer writes panels as plain text.
type TextRenderer struct {
	w    io.Writer
	opts TextOptions
}

// NewTextRenderer returns a renderer writing to w.
func NewTextRenderer(w io.Writer, opts TextOptions) *TextRenderer {
	if opts.BarWidth <= 0 {
		opts.BarWidth = 40
	}
	return &TextRenderer{w: w, opts: opts}
}

func (r *TextRenderer) paint(code, s string) string {
	if !r.opts.Color {
		return s
	}
	return code + s + ansiReset
}

func (r *TextRenderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *TextRenderer) heading(title string) {
	r.printf("\n%s\n  %s\n%s\n", line, r.paint(ansiBold, title), line)
}

func (r *TextRenderer) errorLine(msg string) {
	r.printf("  %s\n", r.paint(ansiRed, msg))
}

// Filings writes the summary followed by the 10-K and 10-Q lists.
func (r *TextRenderer) Filings(s FilingSection) error {
	if s.Error != "" {
		r.errorLine(s.Error)
		return nil
	}
	if sum := s.Summary; sum != nil {
		r.heading("Fetch Results for " + sum.Symbol)
		r.printf("  Company: %s\n", sum.CompanyName)
		r.printf("  10-K Reports: %d (Added: %d)\n", sum.Total10K, sum.Added10K)
		r.printf("  10-Q Reports: %d (Added: %d)\n", sum.Total10Q, sum.Added10Q)
	}
	for _, list := range s.Lists {
		r.printf("\n  ■ %s FILINGS\n%s\n", list.Form, thinLine)
		if list.Placeholder != "" {
			r.printf("  %s\n", list.Placeholder)
			continue
		}
		tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "  FILING DATE\tPERIOD\t%s\tURL\n", strings.ToUpper(list.Entries[0].Term))
		for _, e := range list.Entries {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.FilingDate, e.Period, e.TermValue, e.URL)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Financials writes the extraction notice and the statement table.
func (r *TextRenderer) Financials(s FinancialsSection) error {
	if s.Notice != "" {
		r.printf("  %s\n", r.paint(ansiGreen, s.Notice))
	}
	if s.Error != "" {
		r.errorLine(s.Error)
		return nil
	}
	if s.Table == nil {
		return nil
	}

	var tabs []string
	for _, t := range s.Tabs {
		if t.Active {
			tabs = append(tabs, "["+t.Label+"]")
		} else {
			tabs = append(tabs, t.Label)
		}
	}
	title := "Financial Statements"
	if s.Symbol != "" {
		title += " for " + s.Symbol
	}
	r.heading(title)
	if len(tabs) > 0 {
		r.printf("  %s\n%s\n", strings.Join(tabs, " | "), thinLine)
	}

	if s.Table.Empty != "" {
		r.printf("  %s\n", s.Table.Empty)
		return nil
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "  METRIC\tVALUE (MILLIONS)\tPERIOD\tFILING\t\n")
	for _, row := range s.Table.Rows {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t\n", row.Label, row.Value, row.Period, row.Filing)
	}
	return tw.Flush()
}

// Revenue writes one horizontal bar per period, scaled to the largest value.
func (r *TextRenderer) Revenue(s RevenueSection) error {
	if s.Error != "" {
		r.errorLine(s.Error)
		return nil
	}
	if s.Chart == nil {
		return nil
	}
	r.heading(s.Chart.Title)
	if s.Chart.Empty() {
		r.printf("  No revenue data\n")
		return nil
	}

	maxAbs := 0.0
	for _, v := range s.Chart.Values() {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, p := range s.Chart.Points {
		cells := 0
		if maxAbs > 0 {
			cells = int(math.Round(math.Abs(p.Value) / maxAbs * float64(r.opts.BarWidth)))
		}
		fmt.Fprintf(tw, "  %s\t%s\t$%sM\n", p.Label, strings.Repeat("█", cells),
			printer.Sprintf("%.2f", utils.MillionsFloat(p.Value)))
	}
	return tw.Flush()
}

// Health writes the backend status line.
func (r *TextRenderer) Health(s HealthSection) error {
	status := r.paint(ansiGreen, "● healthy")
	if !s.Healthy {
		status = r.paint(ansiRed, "● unhealthy")
	}
	r.printf("  Backend Status: %s\n", status)
	if s.Message != "" {
		r.printf("  %s\n", s.Message)
	}
	if s.Error != "" {
		r.errorLine(ErrorText(s.Error))
	}
	return nil
}

// Page writes every non-empty section of p.
func (r *TextRenderer) Page(p Page) error {
	if p.Health.Checked {
		if err := r.Health(p.Health); err != nil {
			return err
		}
	}
	if err := r.Filings(p.Filings); err != nil {
		return err
	}
	if err := r.Financials(p.Financials); err != nil {
		return err
	}
	return r.Revenue(p.Revenue)
}
