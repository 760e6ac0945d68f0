package report

import (
	"bytes"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/signalrefinery/refinery/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// HTML Renderer: panels and full page
// ════════════════════════════════════════════════════════════════════

// Page is the template model for the dashboard and for static snapshots.
type Page struct {
	Title       string
	Live        bool         // interactive dashboard: forms, static assets, websocket
	Stylesheet  template.CSS // inlined when not Live
	GeneratedAt string

	Filings    FilingSection
	Financials FinancialsSection
	Revenue    RevenueSection
	Health     HealthSection
}

// DefaultTitle heads every rendered page.
const DefaultTitle = "Signal Refinery"

var templates = template.Must(template.New("refinery").Funcs(template.FuncMap{
	"chart":  renderChart,
	"formID": formID,
}).Parse(PanelTemplates + PageTemplate))

func renderChart(c *ChartData) template.HTML {
	if c == nil {
		return ""
	}
	// BarChart escapes every label it writes.
	return template.HTML(BarChart(*c, DefaultChartConfig()))
}

func formID(f models.FilingType) string {
	return strings.ToLower(strings.ReplaceAll(string(f), "-", ""))
}

// RenderPanel renders the inner HTML of one panel.
func RenderPanel(name string, p Page) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, p); err != nil {
		return "", eris.Wrapf(err, "render panel %s", name)
	}
	return buf.String(), nil
}

// RenderPanels renders the named panels, or every panel when names is empty.
func RenderPanels(p Page, names ...string) (map[string]string, error) {
	if len(names) == 0 {
		names = PanelNames()
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		html, err := RenderPanel(name, p)
		if err != nil {
			return nil, err
		}
		out[name] = html
	}
	return out, nil
}

// RenderPage writes the full HTML document.
func RenderPage(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if err := templates.ExecuteTemplate(w, "page", p); err != nil {
		return eris.Wrap(err, "render page")
	}
	return nil
}

// GenerateHTML renders a static snapshot page stamped with the current time.
func GenerateHTML(p Page) (string, error) {
	p.Live = false
	if p.GeneratedAt == "" {
		p.GeneratedAt = ReportTimestamp()
	}
	var buf bytes.Buffer
	if err := RenderPage(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReportTimestamp returns the current UTC time for report footers.
func ReportTimestamp() string {
	return time.Now().UTC().Format("Jan 2, 2006 15:04 MST")
}
