package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HealthResponse is the response of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Healthy reports whether the backend declared itself healthy.
func (h HealthResponse) Healthy() bool { return h.Status == "healthy" }

// Validate requires a status.
func (h HealthResponse) Validate() error {
	if h.Status == "" {
		return &ValidationError{Field: "status", Reason: "missing"}
	}
	return nil
}

// ErrorPayload is the failure body of a backend call: {"detail": ...}.
// FastAPI sends a string detail for HTTP errors and a list of objects for
// request validation errors; both are kept raw.
type ErrorPayload struct {
	Detail json.RawMessage `json:"detail"`
}

// DetailText returns the detail as display text, or "" when absent.
func (p ErrorPayload) DetailText() string {
	raw := bytes.TrimSpace(p.Detail)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return string(raw)
}

// ValidationError reports a well-formed JSON payload whose content does not
// have the shape a renderer needs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

// Ticker is a tracked symbol with its last known quote figures.
type Ticker struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
}

// Validate requires a symbol.
func (t Ticker) Validate() error {
	if t.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "missing"}
	}
	return nil
}

// TickerAnalysis is the response of GET /tickers/{symbol}/analyze. When the
// ticker is unknown only Message is set.
type TickerAnalysis struct {
	Symbol         string  `json:"symbol,omitempty"`
	Signal         string  `json:"signal,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Price          float64 `json:"price,omitempty"`
	MarketCap      float64 `json:"market_cap,omitempty"`
	LastFilingDate string  `json:"last_filing_date,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// Found reports whether the backend knew the ticker.
func (a TickerAnalysis) Found() bool { return a.Signal != "" }
