package report

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/signalrefinery/refinery/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func sampleSummary(t *testing.T) models.FetchSummary {
	period := date(t, "2024-09-28")
	qPeriod := date(t, "2024-06-29")
	return models.FetchSummary{
		Symbol:          "AAPL",
		CompanyName:     "Apple Inc.",
		Total10K:        2,
		Total10Q:        1,
		Filings10KAdded: 1,
		Filings10K: []models.Filing{
			{FilingDate: date(t, "2024-11-01"), PeriodOfReport: &period, Year: 2024, URL: "https://www.sec.gov/a"},
			{FilingDate: date(t, "2023-11-03"), Year: 2023, URL: "https://www.sec.gov/b"},
		},
		Filings10Q: []models.Filing{
			{FilingDate: date(t, "2024-08-02"), PeriodOfReport: &qPeriod, Year: 2024, Quarter: 3, URL: "https://www.sec.gov/c"},
		},
	}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

var usDates = Formatter{DateLayout: "1/2/2006"}

// ════════════════════════════════════════════════════════════════════
// Filing section
// ════════════════════════════════════════════════════════════════════

func TestNewFilingSection(t *testing.T) {
	s := NewFilingSection(sampleSummary(t), usDates)

	want := SummaryView{Symbol: "AAPL", CompanyName: "Apple Inc.", Total10K: 2, Total10Q: 1, Added10K: 1}
	if diff := cmp.Diff(&want, s.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	if len(s.Lists) != 2 || s.Lists[0].Form != models.Form10K || s.Lists[1].Form != models.Form10Q {
		t.Fatalf("lists: got %+v", s.Lists)
	}
	wantK := []FilingEntry{
		{FilingDate: "11/1/2024", Period: "9/28/2024", Term: "Year", TermValue: "2024", URL: "https://www.sec.gov/a"},
		{FilingDate: "11/3/2023", Period: "N/A", Term: "Year", TermValue: "2023", URL: "https://www.sec.gov/b"},
	}
	if diff := cmp.Diff(wantK, s.Lists[0].Entries); diff != "" {
		t.Errorf("10-K entries mismatch (-want +got):\n%s", diff)
	}
	if q := s.Lists[1].Entries[0]; q.Term != "Quarter" || q.TermValue != "Q3 2024" {
		t.Errorf("10-Q term: got %s %q", q.Term, q.TermValue)
	}
}

func TestEmptyFilingListPlaceholder(t *testing.T) {
	for _, form := range models.FilingTypes() {
		list := NewFilingList(form, nil, usDates)
		if len(list.Entries) != 0 {
			t.Errorf("%s: got %d entries", form, len(list.Entries))
		}
		want := "No " + string(form) + " reports found."
		if list.Placeholder != want {
			t.Errorf("%s placeholder: got %q, want %q", form, list.Placeholder, want)
		}
	}
}

func TestFilingsPanelHTML(t *testing.T) {
	s := NewFilingSection(models.FetchSummary{
		Symbol: "AAPL", CompanyName: "Apple Inc.", Total10K: 2, Total10Q: 4, Filings10KAdded: 1,
		Filings10K: sampleSummary(t).Filings10K,
	}, usDates)

	html, err := RenderPanel(PanelFilings, Page{Live: true, Filings: s})
	if err != nil {
		t.Fatalf("RenderPanel: %v", err)
	}
	doc := parse(t, html)

	if got := doc.Find("#filings-10k-list li").Length(); got != 2 {
		t.Errorf("10-K items: got %d, want 2", got)
	}
	if got := doc.Find("#filings-10q-list li").Length(); got != 1 {
		t.Errorf("10-Q items: got %d, want 1 placeholder", got)
	}
	if got := strings.TrimSpace(doc.Find("#filings-10q-list li").Text()); got != "No 10-Q reports found." {
		t.Errorf("10-Q placeholder: got %q", got)
	}
	if got := doc.Find(".summary-container h3").Text(); got != "Fetch Results for AAPL" {
		t.Errorf("summary heading: got %q", got)
	}
	values := doc.Find(".stat-value").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	if diff := cmp.Diff([]string{"2", "4"}, values); diff != "" {
		t.Errorf("stat values (-want +got):\n%s", diff)
	}
	if got := doc.Find(".stat-added").First().Text(); got != "1" {
		t.Errorf("10-K added: got %q, want 1", got)
	}
	if href, _ := doc.Find("a.filing-link").First().Attr("href"); href != "https://www.sec.gov/a" {
		t.Errorf("filing link: got %q", href)
	}
	if doc.Find("#fetch-filings-form").Length() != 1 {
		t.Error("live panel should include the fetch form")
	}
}

func TestFilingsPanelErrorAndLoading(t *testing.T) {
	html, err := RenderPanel(PanelFilings, Page{Filings: FilingSection{Error: ErrorText("No filings found for ZZZZ")}})
	if err != nil {
		t.Fatal(err)
	}
	doc := parse(t, html)
	if got := doc.Find("#summary-result .error-message").Text(); got != "Error: No filings found for ZZZZ" {
		t.Errorf("error text: got %q", got)
	}
	if doc.Find("li").Length() != 0 {
		t.Error("error state must not render any filing list")
	}
	if doc.Find("form").Length() != 0 {
		t.Error("snapshot panel must not render forms")
	}

	html, _ = RenderPanel(PanelFilings, Page{Filings: FilingSection{Loading: true}})
	if parse(t, html).Find("#loading-indicator").Length() != 1 {
		t.Error("loading indicator missing")
	}
}

func TestPanelEscapesServerText(t *testing.T) {
	html, err := RenderPanel(PanelFilings, Page{Filings: FilingSection{Error: ErrorText("<script>alert(1)</script>")}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("server detail was not escaped: %s", html)
	}
}

// ════════════════════════════════════════════════════════════════════
// Statements
// ════════════════════════════════════════════════════════════════════

func sampleStatements(t *testing.T) models.Statements {
	return models.Statements{
		"income_statement": {
			{MetricName: "Revenues", MetricLabel: "Total revenue", Value: 1234567, PeriodEnd: date(t, "2024-06-30"), FilingType: "10-K"},
			{MetricName: "NetIncomeLoss", Value: 394328000000, PeriodEnd: date(t, "2024-06-30"), FilingType: "10-K"},
			{MetricName: "Revenues", Value: 90753000000, PeriodEnd: date(t, "2024-03-30"), FilingType: "10-Q"},
		},
		"cash_flow": {},
	}
}

func TestNewStatementTable(t *testing.T) {
	table := NewStatementTable(sampleStatements(t), models.IncomeStatement, usDates)
	want := []StatementRow{
		{Label: "Total revenue", Value: "$1.23", Period: "6/30/2024", Filing: "10-K"},
		{Label: "NetIncomeLoss", Value: "$394328.00", Period: "6/30/2024", Filing: "10-K"},
		{Label: "Revenues", Value: "$90753.00", Period: "3/30/2024", Filing: "10-Q"},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if table.Empty != "" {
		t.Errorf("Empty: got %q", table.Empty)
	}
}

func TestStatementTableNoData(t *testing.T) {
	tests := []struct {
		name string
		st   models.Statements
		typ  models.StatementType
	}{
		{"missing key", sampleStatements(t), models.BalanceSheet},
		{"empty key", sampleStatements(t), models.CashFlow},
		{"nil statements", nil, models.IncomeStatement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewStatementTable(tt.st, tt.typ, usDates)
			if table.Empty != NoStatementData || len(table.Rows) != 0 {
				t.Errorf("got %+v, want no-data message", table)
			}
		})
	}
}

func TestFinancialsPanelHTML(t *testing.T) {
	table := NewStatementTable(sampleStatements(t), models.IncomeStatement, usDates)
	sec := FinancialsSection{
		Symbol: "AAPL",
		Tabs:   NewTabs(models.BalanceSheet),
		Notice: ExtractionNotice("AAPL", models.ExtractionSummary{MetricsAdded: 12, TotalMetrics: 40}),
		Table:  &table,
	}
	html, err := RenderPanel(PanelFinancials, Page{Live: true, Financials: sec})
	if err != nil {
		t.Fatal(err)
	}
	doc := parse(t, html)

	if got := doc.Find("table.financial-table tbody tr").Length(); got != 3 {
		t.Errorf("rows: got %d, want 3", got)
	}
	active := doc.Find(".tab-btn.active")
	if active.Length() != 1 {
		t.Fatalf("active tabs: got %d, want exactly 1", active.Length())
	}
	if st, _ := active.Attr("data-statement"); st != "balance_sheet" {
		t.Errorf("active tab: got %q", st)
	}
	if got := doc.Find(".tab-form").Length(); got != 3 {
		t.Errorf("tab forms: got %d, want 3", got)
	}
	if got := doc.Find(".notice").Text(); got != "Extracted 12 financial metrics for AAPL. Total: 40" {
		t.Errorf("notice: got %q", got)
	}

	empty := NewStatementTable(nil, models.CashFlow, usDates)
	html, _ = RenderPanel(PanelFinancials, Page{Financials: FinancialsSection{Tabs: NewTabs(models.CashFlow), Table: &empty}})
	if got := parse(t, html).Find("#financials-display p").Text(); got != NoStatementData {
		t.Errorf("empty table: got %q", got)
	}
}

func TestNewTabsExactlyOneActive(t *testing.T) {
	for _, st := range models.StatementTypes() {
		active := 0
		for _, tab := range NewTabs(st) {
			if tab.Active {
				active++
				if tab.Type != st {
					t.Errorf("wrong tab active: %s", tab.Type)
				}
			}
		}
		if active != 1 {
			t.Errorf("NewTabs(%s): %d active tabs", st, active)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Revenue
// ════════════════════════════════════════════════════════════════════

func sampleRevenue(t *testing.T) []models.RevenueDataItem {
	return []models.RevenueDataItem{
		{PeriodEnd: date(t, "2024-03-30"), Revenue: 90753000000},
		{PeriodEnd: date(t, "2023-12-30"), Revenue: 119575000000},
		{PeriodEnd: date(t, "2023-12-30"), Revenue: 119575000000},
		{PeriodEnd: date(t, "2024-06-29"), Revenue: 85777000000},
	}
}

func TestAdaptRevenueKeepsOrderAndPairs(t *testing.T) {
	items := sampleRevenue(t)
	c := AdaptRevenue("AAPL", models.Form10Q, items)

	if c.Title != "AAPL Revenue (10-Q)" {
		t.Errorf("Title: got %q", c.Title)
	}
	labels, values := c.Labels(), c.Values()
	if len(labels) != len(items) || len(values) != len(items) {
		t.Fatalf("lengths: %d labels, %d values, %d items", len(labels), len(values), len(items))
	}
	for i, item := range items {
		if labels[i] != item.PeriodEnd.String() || values[i] != item.Revenue {
			t.Errorf("point %d: got (%s, %f), want (%s, %f)", i, labels[i], values[i], item.PeriodEnd, item.Revenue)
		}
	}
	if AdaptRevenue("", "", nil).Empty() != true {
		t.Error("no items should give an empty chart")
	}
}

func TestBarChart(t *testing.T) {
	c := AdaptRevenue("AAPL", models.Form10Q, sampleRevenue(t))
	svg := BarChart(c, DefaultChartConfig())

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not an svg document: %.60s", svg)
	}
	doc := parse(t, svg)
	if got := doc.Find("rect.bar").Length(); got != 4 {
		t.Errorf("bars: got %d, want 4", got)
	}
	if !strings.Contains(svg, "AAPL Revenue (10-Q)") {
		t.Error("title missing")
	}
	if !strings.Contains(svg, "$90.75B") {
		t.Error("tooltip value missing")
	}

	empty := BarChart(ChartData{}, ChartConfig{})
	if !strings.Contains(empty, "No revenue data") {
		t.Errorf("empty chart: got %s", empty)
	}
}

func TestBarChartThinsLabels(t *testing.T) {
	var data ChartData
	for i := 0; i < 30; i++ {
		data.Points = append(data.Points, ChartPoint{Label: "p", Value: float64(i + 1)})
	}
	doc := parse(t, BarChart(data, DefaultChartConfig()))
	labels := doc.Find("text[transform]").Length()
	if labels > 12 || labels == 0 {
		t.Errorf("x labels: got %d, want between 1 and 12", labels)
	}
}

func TestRevenuePanelHTML(t *testing.T) {
	c := AdaptRevenue("AAPL", models.Form10Q, sampleRevenue(t))
	html, err := RenderPanel(PanelRevenue, Page{Revenue: RevenueSection{Chart: &c}})
	if err != nil {
		t.Fatal(err)
	}
	if got := parse(t, html).Find(".chart svg rect.bar").Length(); got != 4 {
		t.Errorf("bars in panel: got %d", got)
	}

	html, _ = RenderPanel(PanelRevenue, Page{Revenue: RevenueSection{Error: ErrorText("HTTP 500: Internal Server Error")}})
	doc := parse(t, html)
	if doc.Find("svg").Length() != 0 {
		t.Error("error state must not render a chart")
	}
	if got := doc.Find(".error-message").Text(); got != "Error: HTTP 500: Internal Server Error" {
		t.Errorf("error: got %q", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// Health, page, text
// ════════════════════════════════════════════════════════════════════

func TestNewHealthSection(t *testing.T) {
	up := NewHealthSection(&models.HealthResponse{Status: "healthy", Message: "API is running"}, "")
	if !up.Healthy || up.Message != "API is running" {
		t.Errorf("healthy: got %+v", up)
	}
	degraded := NewHealthSection(&models.HealthResponse{Status: "degraded"}, "")
	if degraded.Healthy {
		t.Error("only status=healthy counts as healthy")
	}
	down := NewHealthSection(nil, "connection refused")
	if down.Healthy || down.Message != HealthDown || down.Error != "connection refused" {
		t.Errorf("down: got %+v", down)
	}
}

func TestRenderPanelsAndPage(t *testing.T) {
	p := Page{Live: true, Filings: NewFilingSection(sampleSummary(t), usDates), Financials: FinancialsSection{Tabs: NewTabs(models.IncomeStatement)}}
	panels, err := RenderPanels(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range PanelNames() {
		if _, ok := panels[name]; !ok {
			t.Errorf("panel %s missing", name)
		}
	}

	var buf bytes.Buffer
	if err := RenderPage(&buf, p); err != nil {
		t.Fatal(err)
	}
	doc := parse(t, buf.String())
	if got := doc.Find("[data-panel]").Length(); got != len(PanelNames()) {
		t.Errorf("panel containers: got %d", got)
	}
	if doc.Find(`script[src="/static/app.js"]`).Length() != 1 {
		t.Error("live page should load the websocket client")
	}
	if doc.Find("title").Text() != DefaultTitle {
		t.Errorf("title: got %q", doc.Find("title").Text())
	}
}

func TestGenerateHTMLSnapshot(t *testing.T) {
	html, err := GenerateHTML(Page{Stylesheet: "body{color:#111}", Filings: NewFilingSection(sampleSummary(t), usDates)})
	if err != nil {
		t.Fatal(err)
	}
	doc := parse(t, html)
	if doc.Find("script").Length() != 0 || doc.Find("form").Length() != 0 {
		t.Error("snapshot must be static")
	}
	if !strings.Contains(doc.Find("style").Text(), "color:#111") {
		t.Error("snapshot should inline the stylesheet")
	}
	if doc.Find("footer").Length() != 1 {
		t.Error("snapshot should carry a generated-at footer")
	}

	out := filepath.Join(t.TempDir(), "snap", "aapl.html")
	written, err := WriteSnapshot(html, out)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if written != out {
		t.Errorf("written path: got %q", written)
	}
	if data, err := os.ReadFile(out); err != nil || !bytes.Contains(data, []byte("Apple Inc.")) {
		t.Errorf("snapshot file: %v", err)
	}
}

// fakeEngine installs an executable shell script as name in a fresh PATH.
func fakeEngine(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	if name != "" {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
}

func TestWriteSnapshotPDF(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("engine stubs are shell scripts")
	}
	tests := []struct {
		name    string
		binary  string
		script  string
		want    string
		wantErr string
	}{
		{
			name: "no engine falls back to html",
			want: "report.html",
		},
		{
			name:   "wkhtmltopdf",
			binary: "wkhtmltopdf",
			script: "for a; do out=$a; done\nprintf '%%PDF-1.4' > \"$out\"\n",
			want:   "report.pdf",
		},
		{
			name:   "chromium",
			binary: "chromium",
			script: "for a; do case \"$a\" in --print-to-pdf=*) printf '%%PDF-1.4' > \"${a#--print-to-pdf=}\";; esac; done\n",
			want:   "report.pdf",
		},
		{
			name:    "engine failure",
			binary:  "wkhtmltopdf",
			script:  "echo boom >&2\nexit 1\n",
			wantErr: "boom",
		},
		{
			name:    "engine writes nothing",
			binary:  "google-chrome",
			script:  "exit 0\n",
			wantErr: "wrote no PDF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeEngine(t, tt.binary, tt.script)
			out := filepath.Join(t.TempDir(), "report.pdf")

			written, err := WriteSnapshot("<html><body>Apple Inc.</body></html>", out)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err: got %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteSnapshot: %v", err)
			}
			if filepath.Base(written) != tt.want {
				t.Errorf("written path: got %q, want %q", filepath.Base(written), tt.want)
			}
			data, err := os.ReadFile(written)
			if err != nil {
				t.Fatalf("output missing: %v", err)
			}
			if tt.want == "report.pdf" && !bytes.HasPrefix(data, []byte("%PDF")) {
				t.Errorf("pdf content: got %q", data)
			}
		})
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, TextOptions{})

	if err := r.Filings(NewFilingSection(sampleSummary(t), usDates)); err != nil {
		t.Fatal(err)
	}
	table := NewStatementTable(sampleStatements(t), models.IncomeStatement, usDates)
	if err := r.Financials(FinancialsSection{Symbol: "AAPL", Tabs: NewTabs(models.IncomeStatement), Table: &table}); err != nil {
		t.Fatal(err)
	}
	c := AdaptRevenue("AAPL", models.Form10Q, sampleRevenue(t))
	if err := r.Revenue(RevenueSection{Chart: &c}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Fetch Results for AAPL",
		"Company: Apple Inc.",
		"10-K Reports: 2 (Added: 1)",
		"Q3 2024",
		"[Income Statement]",
		"$394328.00",
		"$119,575.00M",
		"AAPL Revenue (10-Q)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("color disabled but ANSI codes written")
	}
}

func TestTextRendererErrors(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, TextOptions{Color: true})
	r.Filings(FilingSection{Error: ErrorText("HTTP 404: Not Found")})
	r.Health(NewHealthSection(nil, "dial tcp: connection refused"))

	out := buf.String()
	if !strings.Contains(out, ansiRed+"Error: HTTP 404: Not Found"+ansiReset) {
		t.Errorf("colored error missing: %q", out)
	}
	if !strings.Contains(out, HealthDown) || !strings.Contains(out, "Error: dial tcp: connection refused") {
		t.Errorf("health output: %q", out)
	}
}
