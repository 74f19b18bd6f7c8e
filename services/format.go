package services

import (
	"fmt"
	"strings"
)

// FormatNTD formats an amount in New Taiwan Dollar notation with standard
// 3-digit grouping, e.g. NT$1,234,567. Whole amounts drop the decimal part;
// fractional amounts keep two decimal places.
func FormatNTD(amount float64) string {
	negative := false
	if amount < 0 {
		negative = true
		amount = -amount
	}

	raw := fmt.Sprintf("%.2f", amount)
	parts := strings.SplitN(raw, ".", 2)
	intPart := parts[0]
	decPart := parts[1]

	result := "NT$" + groupThousands(intPart)
	if decPart != "00" {
		result += "." + decPart
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatAmount formats a bare number with 3-digit grouping and no currency
// prefix, for table cells where the currency symbol is rendered separately.
func FormatAmount(amount float64) string {
	s := FormatNTD(amount)
	s = strings.Replace(s, "NT$", "", 1)
	return s
}

// formatQty renders a quantity as a whole number when it has no fractional
// part, otherwise with two decimals.
func formatQty(qty float64) string {
	if qty == float64(int64(qty)) {
		return fmt.Sprintf("%d", int64(qty))
	}
	return fmt.Sprintf("%.2f", qty)
}

// groupThousands inserts commas into an integer string every 3 digits from
// the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	remaining := s[:n-3]
	for len(remaining) > 3 {
		result = remaining[len(remaining)-3:] + "," + result
		remaining = remaining[:len(remaining)-3]
	}
	return remaining + "," + result
}
