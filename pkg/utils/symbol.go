package utils

import (
	"fmt"
	"strings"
)

const maxSymbolLen = 10

// NormalizeSymbol trims whitespace and upper-cases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateSymbol normalizes s and rejects anything that cannot be a US ticker:
// letters and digits, optionally with a '.' or '-' share-class separator.
func ValidateSymbol(s string) (string, error) {
	sym := NormalizeSymbol(s)
	if sym == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if len(sym) > maxSymbolLen {
		return "", fmt.Errorf("symbol %q is longer than %d characters", sym, maxSymbolLen)
	}
	for i, r := range sym {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case (r == '.' || r == '-') && i > 0 && i < len(sym)-1:
		default:
			return "", fmt.Errorf("symbol %q contains invalid character %q", sym, r)
		}
	}
	return sym, nil
}
