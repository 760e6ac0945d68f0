package models

import "fmt"

// FilingType is the SEC form type of a periodic report.
type FilingType string

const (
	Form10K FilingType = "10-K" // annual report
	Form10Q FilingType = "10-Q" // quarterly report
)

// FilingTypes returns the supported form types in display order.
func FilingTypes() []FilingType {
	return []FilingType{Form10K, Form10Q}
}

// ParseFilingType validates a form type string.
func ParseFilingType(s string) (FilingType, error) {
	switch FilingType(s) {
	case Form10K, Form10Q:
		return FilingType(s), nil
	}
	return "", fmt.Errorf("unknown filing type %q (want 10-K or 10-Q)", s)
}

// Filing is a single 10-K or 10-Q record as returned by the filing fetch.
// Quarter is only meaningful for 10-Q filings.
type Filing struct {
	FilingDate     Date   `json:"filing_date"`
	PeriodOfReport *Date  `json:"period_of_report"`
	Year           int    `json:"year"`
	Quarter        int    `json:"quarter,omitempty"`
	URL            string `json:"url"`
}

// HasPeriod reports whether the period of report is present.
func (f Filing) HasPeriod() bool {
	return f.PeriodOfReport != nil && !f.PeriodOfReport.IsZero()
}

// FetchSummary is the response of POST /filings/{symbol}.
type FetchSummary struct {
	Symbol          string   `json:"symbol"`
	CompanyName     string   `json:"company_name"`
	Total10K        int      `json:"total_10k"`
	Total10Q        int      `json:"total_10q"`
	Filings10KAdded int      `json:"filings_10k_added"`
	Filings10QAdded int      `json:"filings_10q_added"`
	Filings10K      []Filing `json:"filings_10k"`
	Filings10Q      []Filing `json:"filings_10q"`
}

// Filings returns the filings of the given form type.
func (s FetchSummary) Filings(form FilingType) []Filing {
	if form == Form10Q {
		return s.Filings10Q
	}
	return s.Filings10K
}

// Validate checks the structural consistency of a fetch summary.
func (s FetchSummary) Validate() error {
	if s.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "missing"}
	}
	if s.Total10K != len(s.Filings10K) {
		return &ValidationError{Field: "total_10k", Reason: fmt.Sprintf("is %d but filings_10k has %d entries", s.Total10K, len(s.Filings10K))}
	}
	if s.Total10Q != len(s.Filings10Q) {
		return &ValidationError{Field: "total_10q", Reason: fmt.Sprintf("is %d but filings_10q has %d entries", s.Total10Q, len(s.Filings10Q))}
	}
	if s.Filings10KAdded < 0 || s.Filings10QAdded < 0 {
		return &ValidationError{Field: "filings_added", Reason: "negative count"}
	}
	for _, form := range FilingTypes() {
		for i, f := range s.Filings(form) {
			if f.FilingDate.IsZero() {
				return &ValidationError{Field: fmt.Sprintf("%s[%d].filing_date", form, i), Reason: "missing"}
			}
			if f.URL == "" {
				return &ValidationError{Field: fmt.Sprintf("%s[%d].url", form, i), Reason: "missing"}
			}
		}
	}
	return nil
}
