package report

// PanelTemplates defines one named template per dashboard panel. Each is
// executed with a Page and renders the inner HTML of its panel element.
const PanelTemplates = `
{{define "filings"}}
{{if .Live}}<form id="fetch-filings-form" class="js-post" method="post" action="/ui/filings">
  <input id="fetch-symbol" name="symbol" placeholder="Ticker symbol (e.g. AAPL)" value="{{.Filings.Input}}" autocomplete="off" required>
  <button type="submit"{{if .Filings.Loading}} disabled{{end}}>Fetch Filings</button>
</form>{{end}}
{{with .Filings}}
{{if .Loading}}<div id="loading-indicator" class="loading">Fetching filings from SEC EDGAR...</div>{{end}}
<div id="summary-result">
{{if .Error}}<div class="error-message">{{.Error}}</div>{{end}}
{{with .Summary}}<div class="summary-container">
  <h3>Fetch Results for {{.Symbol}}</h3>
  <p><strong>Company:</strong> {{.CompanyName}}</p>
  <div class="summary-stats">
    <div class="stat">
      <h4>10-K Reports</h4>
      <p class="stat-value">{{.Total10K}}</p>
      <p class="stat-label">Added: <span class="stat-added">{{.Added10K}}</span></p>
    </div>
    <div class="stat">
      <h4>10-Q Reports</h4>
      <p class="stat-value">{{.Total10Q}}</p>
      <p class="stat-label">Added: <span class="stat-added">{{.Added10Q}}</span></p>
    </div>
  </div>
</div>{{end}}
</div>
<div class="filing-columns">
{{range .Lists}}<div class="filing-column">
  <h3>{{.Form}} Filings</h3>
  <ul id="filings-{{formID .Form}}-list" class="filing-list">
  {{if .Placeholder}}<li class="placeholder">{{.Placeholder}}</li>{{end}}
  {{range .Entries}}<li>
    <div class="filing-item">
      <div class="filing-info">
        <strong>Filing Date:</strong> {{.FilingDate}}<br>
        <strong>Period:</strong> {{.Period}}<br>
        <strong>{{.Term}}:</strong> {{.TermValue}}
      </div>
      <a href="{{.URL}}" target="_blank" rel="noopener" class="filing-link">View on SEC.gov →</a>
    </div>
  </li>{{end}}
  </ul>
</div>{{end}}
</div>
{{end}}
{{end}}

{{define "financials"}}
{{if .Live}}<form id="extract-financials-form" class="js-post" method="post" action="/ui/financials/extract">
  <input id="financial-symbol" name="symbol" placeholder="Ticker symbol (e.g. AAPL)" value="{{.Financials.Input}}" autocomplete="off" required>
  <button type="submit"{{if .Financials.Loading}} disabled{{end}}>Extract Financials</button>
</form>{{end}}
{{with .Financials}}
{{if .Loading}}<div id="financial-loading-indicator" class="loading">Extracting financial data...</div>{{end}}
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
<div class="tabs">
{{range .Tabs}}{{if $.Live}}<form class="js-post tab-form" method="post" action="/ui/financials/tab/{{.Type}}">
  <button type="submit" class="tab-btn{{if .Active}} active{{end}}" data-statement="{{.Type}}">{{.Label}}</button>
</form>{{else}}<span class="tab-btn{{if .Active}} active{{end}}" data-statement="{{.Type}}">{{.Label}}</span>{{end}}
{{end}}
</div>
<div id="financials-display">
{{if .Error}}<div class="error-message">{{.Error}}</div>{{end}}
{{with .Table}}{{if .Empty}}<p class="placeholder">{{.Empty}}</p>{{else}}<table class="financial-table">
  <thead><tr><th>Metric</th><th>Value (Millions)</th><th>Period</th><th>Filing</th></tr></thead>
  <tbody>
  {{range .Rows}}<tr><td>{{.Label}}</td><td class="num">{{.Value}}</td><td>{{.Period}}</td><td>{{.Filing}}</td></tr>
  {{end}}</tbody>
</table>{{end}}{{end}}
</div>
{{end}}
{{end}}

{{define "revenue"}}
{{if .Live}}<form id="revenue-form" class="js-post" method="post" action="/ui/revenue">
  <input name="symbol" placeholder="Ticker symbol (e.g. AAPL)" value="{{.Revenue.Input}}" autocomplete="off" required>
  <select name="filing_type">
    <option value="10-Q"{{if eq .Revenue.FilingType "10-Q"}} selected{{end}}>10-Q</option>
    <option value="10-K"{{if eq .Revenue.FilingType "10-K"}} selected{{end}}>10-K</option>
  </select>
  <button type="submit"{{if .Revenue.Loading}} disabled{{end}}>Load Revenue</button>
</form>{{end}}
{{with .Revenue}}
{{if .Loading}}<div class="loading">Loading revenue data...</div>{{end}}
{{if .Error}}<div class="error-message">{{.Error}}</div>{{end}}
{{with .Chart}}<div class="chart">{{chart .}}</div>{{end}}
{{end}}
{{end}}

{{define "health"}}
{{with .Health}}<div class="health {{if .Healthy}}up{{else}}down{{end}}">
  <span class="dot"></span>
  <div>
    <h3>Backend Status</h3>
    <p class="health-message">{{if .Checked}}{{.Message}}{{else}}Checking...{{end}}</p>
    {{if .Error}}<p class="error-message">Error: {{.Error}}</p>{{end}}
  </div>
</div>{{end}}
{{end}}
`

// PageTemplate is the full dashboard document. Live pages link the static
// assets and websocket client; snapshots inline the stylesheet instead.
const PageTemplate = `{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
{{if .Live}}<link rel="stylesheet" href="/static/style.css">{{else}}<style>{{.Stylesheet}}</style>{{end}}
</head>
<body>
<header class="header">
  <h1>{{.Title}}</h1>
  <section id="panel-health" data-panel="health">{{template "health" .}}</section>
</header>
<main>
{{if .Live}}<div id="feed-notice" class="feed-notice" role="status" hidden></div>{{end}}
  <section class="card">
    <h2>SEC Filings</h2>
    <div id="panel-filings" data-panel="filings">{{template "filings" .}}</div>
  </section>
  <section class="card">
    <h2>Financial Statements</h2>
    <div id="panel-financials" data-panel="financials">{{template "financials" .}}</div>
  </section>
  <section class="card">
    <h2>Revenue</h2>
    <div id="panel-revenue" data-panel="revenue">{{template "revenue" .}}</div>
  </section>
</main>
{{if .GeneratedAt}}<footer class="muted">Generated {{.GeneratedAt}}</footer>{{end}}
{{if .Live}}<script src="/static/app.js" defer></script>{{end}}
</body>
</html>
{{end}}`
