package models

import "fmt"

// StatementType selects which financial statement's line items are shown.
type StatementType string

const (
	IncomeStatement StatementType = "income_statement"
	BalanceSheet    StatementType = "balance_sheet"
	CashFlow        StatementType = "cash_flow"
)

// StatementTypes returns every statement type in tab order.
func StatementTypes() []StatementType {
	return []StatementType{IncomeStatement, BalanceSheet, CashFlow}
}

// ParseStatementType validates a statement type key.
func ParseStatementType(s string) (StatementType, error) {
	for _, t := range StatementTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown statement type %q", s)
}

// Label returns the human-readable tab label.
func (t StatementType) Label() string {
	switch t {
	case IncomeStatement:
		return "Income Statement"
	case BalanceSheet:
		return "Balance Sheet"
	case CashFlow:
		return "Cash Flow"
	}
	return string(t)
}

// StatementLineItem is one metric of a statement for one period.
// Value is in base currency units.
type StatementLineItem struct {
	MetricName  string  `json:"metric_name"`
	MetricLabel string  `json:"metric_label,omitempty"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit,omitempty"`
	PeriodEnd   Date    `json:"period_end"`
	FilingDate  Date    `json:"filing_date"`
	FilingType  string  `json:"filing_type"`
}

// DisplayLabel falls back to the metric name when no label was extracted.
func (i StatementLineItem) DisplayLabel() string {
	if i.MetricLabel != "" {
		return i.MetricLabel
	}
	return i.MetricName
}

// Statements maps a statement type key to its ordered line items.
type Statements map[string][]StatementLineItem

// Lookup returns the line items for t; missing keys yield nil.
func (s Statements) Lookup(t StatementType) []StatementLineItem {
	if s == nil {
		return nil
	}
	return s[string(t)]
}

// FinancialsResponse is the response of GET /financials/{symbol}.
type FinancialsResponse struct {
	Symbol       string     `json:"symbol"`
	TotalMetrics int        `json:"total_metrics"`
	Statements   Statements `json:"statements"`
}

// Validate rejects line items without a metric name.
func (r FinancialsResponse) Validate() error {
	for key, items := range r.Statements {
		for i, item := range items {
			if item.MetricName == "" {
				return &ValidationError{Field: fmt.Sprintf("statements.%s[%d].metric_name", key, i), Reason: "missing"}
			}
		}
	}
	return nil
}

// ExtractionSummary is the response of POST /financials/extract/{symbol}.
type ExtractionSummary struct {
	Symbol              string   `json:"symbol"`
	CompanyName         string   `json:"company_name"`
	MetricsAdded        int      `json:"metrics_added"`
	TotalMetrics        int      `json:"total_metrics"`
	StatementsExtracted []string `json:"statements_extracted,omitempty"`
}

// Validate rejects negative counts.
func (s ExtractionSummary) Validate() error {
	if s.MetricsAdded < 0 || s.TotalMetrics < 0 {
		return &ValidationError{Field: "metrics", Reason: "negative count"}
	}
	return nil
}
