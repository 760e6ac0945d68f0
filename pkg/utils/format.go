// Package utils converts raw backend values into display units.
package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable is shown in place of an absent value.
const NotAvailable = "N/A"

// DefaultDateLayout renders dates the way an en-US short date reads (3/31/2024).
const DefaultDateLayout = "1/2/2006"

var million = decimal.NewFromInt(1_000_000)

// ToMillions scales a base-unit amount to millions, rounded to two decimals.
func ToMillions(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Div(million).Round(2)
}

// FormatMillions formats a base-unit amount in millions with exactly two decimals.
// e.g., 1234567 → "1.23", 394328000000 → "394328.00"
func FormatMillions(amount float64) string {
	return ToMillions(amount).StringFixed(2)
}

// MillionsFloat is ToMillions as a float, for chart axes.
func MillionsFloat(amount float64) float64 {
	f, _ := ToMillions(amount).Float64()
	return f
}

// FormatDate renders t with layout, or NotAvailable when t is zero.
// An empty layout selects DefaultDateLayout.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return NotAvailable
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

// FormatUSDCompact formats a dollar amount with a magnitude suffix.
// e.g., 2950000000000 → "$2.95T", 1500000 → "$1.5M"
func FormatUSDCompact(amount float64) string {
	prefix := "$"
	if amount < 0 {
		prefix = "-$"
	}
	amount = math.Abs(amount)

	switch {
	case amount >= 1e12:
		return prefix + trimDecimals(amount/1e12) + "T"
	case amount >= 1e9:
		return prefix + trimDecimals(amount/1e9) + "B"
	case amount >= 1e6:
		return prefix + trimDecimals(amount/1e6) + "M"
	case amount >= 1e3:
		return prefix + trimDecimals(amount/1e3) + "K"
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// trimDecimals formats with up to 2 decimal places, dropping trailing zeros.
func trimDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
