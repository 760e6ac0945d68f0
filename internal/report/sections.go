package report

import (
	"fmt"
	"strconv"

	"github.com/signalrefinery/refinery/pkg/models"
	"github.com/signalrefinery/refinery/pkg/utils"
)

// Panel names identify independently published regions of a view.
const (
	PanelFilings    = "filings"
	PanelFinancials = "financials"
	PanelRevenue    = "revenue"
	PanelHealth     = "health"
)

// PanelNames returns every panel in page order.
func PanelNames() []string {
	return []string{PanelFilings, PanelFinancials, PanelRevenue, PanelHealth}
}

// Placeholder and message text shown in place of data.
const (
	NoStatementData = "No data available for this statement."
	HealthChecking  = "Checking..."
	HealthDown      = "Backend is not responding"
)

// ErrorText formats a failure the way every panel shows it.
func ErrorText(msg string) string {
	return "Error: " + msg
}

// NoFilingsText is the placeholder for an empty filing list.
func NoFilingsText(form models.FilingType) string {
	return fmt.Sprintf("No %s reports found.", form)
}

// ExtractionNotice summarizes a finished extraction.
func ExtractionNotice(symbol string, s models.ExtractionSummary) string {
	return fmt.Sprintf("Extracted %d financial metrics for %s. Total: %d", s.MetricsAdded, symbol, s.TotalMetrics)
}

// Formatter renders raw values for display.
type Formatter struct {
	DateLayout string
}

// Date renders d, or "N/A" when absent.
func (f Formatter) Date(d models.Date) string {
	return utils.FormatDate(d.Time, f.DateLayout)
}

// OptionalDate renders d, or "N/A" when nil or absent.
func (f Formatter) OptionalDate(d *models.Date) string {
	if d == nil {
		return utils.NotAvailable
	}
	return f.Date(*d)
}

// ════════════════════════════════════════════════════════════════════
// Filings
// ════════════════════════════════════════════════════════════════════

// SummaryView is the fetch-results summary panel.
type SummaryView struct {
	Symbol      string
	CompanyName string
	Total10K    int
	Total10Q    int
	Added10K    int
	Added10Q    int
}

// FilingEntry is one rendered filing.
type FilingEntry struct {
	FilingDate string
	Period     string
	Term       string // "Year" for annual reports, "Quarter" for quarterly
	TermValue  string // "2024" or "Q2 2024"
	URL        string
}

// FilingList is a rendered list for one form type. An empty list carries
// a placeholder instead of entries.
type FilingList struct {
	Form        models.FilingType
	Entries     []FilingEntry
	Placeholder string
}

// FilingSection is the summary plus the 10-K and 10-Q lists. All three are
// built from one FetchSummary and always replaced together.
type FilingSection struct {
	Input   string // symbol shown in the fetch form
	Loading bool
	Error   string
	Summary *SummaryView
	Lists   []FilingList
}

// NewFilingSection builds the summary and both lists from one response.
func NewFilingSection(s models.FetchSummary, f Formatter) FilingSection {
	return FilingSection{
		Summary: &SummaryView{
			Symbol:      s.Symbol,
			CompanyName: s.CompanyName,
			Total10K:    s.Total10K,
			Total10Q:    s.Total10Q,
			Added10K:    s.Filings10KAdded,
			Added10Q:    s.Filings10QAdded,
		},
		Lists: []FilingList{
			NewFilingList(models.Form10K, s.Filings10K, f),
			NewFilingList(models.Form10Q, s.Filings10Q, f),
		},
	}
}

// NewFilingList renders filings in input order.
func NewFilingList(form models.FilingType, filings []models.Filing, f Formatter) FilingList {
	list := FilingList{Form: form}
	if len(filings) == 0 {
		list.Placeholder = NoFilingsText(form)
		return list
	}
	list.Entries = make([]FilingEntry, 0, len(filings))
	for _, fl := range filings {
		e := FilingEntry{
			FilingDate: f.Date(fl.FilingDate),
			Period:     f.OptionalDate(fl.PeriodOfReport),
			Term:       "Year",
			TermValue:  strconv.Itoa(fl.Year),
			URL:        fl.URL,
		}
		if form == models.Form10Q {
			e.Term = "Quarter"
			e.TermValue = fmt.Sprintf("Q%d %d", fl.Quarter, fl.Year)
		}
		list.Entries = append(list.Entries, e)
	}
	return list
}

// ════════════════════════════════════════════════════════════════════
// Financial statements
// ════════════════════════════════════════════════════════════════════

// Tab is one statement-type selector.
type Tab struct {
	Type   models.StatementType
	Label  string
	Active bool
}

// NewTabs returns every statement tab with exactly active marked.
func NewTabs(active models.StatementType) []Tab {
	types := models.StatementTypes()
	tabs := make([]Tab, len(types))
	for i, t := range types {
		tabs[i] = Tab{Type: t, Label: t.Label(), Active: t == active}
	}
	return tabs
}

// StatementRow is one rendered line item.
type StatementRow struct {
	Label  string
	Value  string // "$1.23", in millions
	Period string
	Filing string
}

// StatementTable is the rendered statement for one type. Empty is set
// instead of rows when there is nothing to show.
type StatementTable struct {
	Type  models.StatementType
	Rows  []StatementRow
	Empty string
}

// NewStatementTable looks up t and renders one row per line item in input
// order. A missing or empty statement yields the no-data message.
func NewStatementTable(st models.Statements, t models.StatementType, f Formatter) StatementTable {
	items := st.Lookup(t)
	table := StatementTable{Type: t}
	if len(items) == 0 {
		table.Empty = NoStatementData
		return table
	}
	table.Rows = make([]StatementRow, len(items))
	for i, item := range items {
		table.Rows[i] = StatementRow{
			Label:  item.DisplayLabel(),
			Value:  "$" + utils.FormatMillions(item.Value),
			Period: f.Date(item.PeriodEnd),
			Filing: item.FilingType,
		}
	}
	return table
}

// FinancialsSection is the extraction form, statement tabs and table.
type FinancialsSection struct {
	Input   string // symbol shown in the extraction form
	Symbol  string // symbol the table belongs to
	Loading bool
	Tabs    []Tab
	Notice  string
	Error   string
	Table   *StatementTable
}

// ════════════════════════════════════════════════════════════════════
// Revenue & health
// ════════════════════════════════════════════════════════════════════

// RevenueSection is the revenue chart panel.
type RevenueSection struct {
	Input      string
	Symbol     string
	FilingType models.FilingType
	Loading    bool
	Error      string
	Chart      *ChartData
}

// HealthSection is the backend status badge.
type HealthSection struct {
	Checked bool
	Healthy bool
	Message string
	Error   string
}

// NewHealthSection renders a probe outcome. status is nil when the probe failed.
func NewHealthSection(status *models.HealthResponse, errMsg string) HealthSection {
	if status == nil {
		return HealthSection{Checked: true, Message: HealthDown, Error: errMsg}
	}
	return HealthSection{Checked: true, Healthy: status.Healthy(), Message: status.Message}
}
