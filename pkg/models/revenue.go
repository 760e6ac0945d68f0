package models

import "fmt"

// RevenueDataItem is one point of a revenue series.
type RevenueDataItem struct {
	Symbol       string  `json:"symbol"`
	FilingType   string  `json:"filing_type"`
	PeriodEnd    Date    `json:"period_end"`
	FilingDate   Date    `json:"filing_date"`
	Revenue      float64 `json:"revenue"`
	RevenueLabel string  `json:"revenue_label"`
	Unit         string  `json:"unit"`
}

// RevenueResponse is the response of GET /revenue/{symbol}.
// Items arrive in server order; nothing here re-sorts them.
type RevenueResponse struct {
	Symbol      string            `json:"symbol"`
	FilingType  string            `json:"filing_type"`
	Count       int               `json:"count"`
	RevenueData []RevenueDataItem `json:"revenue_data"`
}

// Validate checks count against the series length and that every point has a period.
func (r RevenueResponse) Validate() error {
	if r.Count != len(r.RevenueData) {
		return &ValidationError{Field: "count", Reason: fmt.Sprintf("is %d but revenue_data has %d entries", r.Count, len(r.RevenueData))}
	}
	for i, item := range r.RevenueData {
		if item.PeriodEnd.IsZero() {
			return &ValidationError{Field: fmt.Sprintf("revenue_data[%d].period_end", i), Reason: "missing"}
		}
	}
	return nil
}
