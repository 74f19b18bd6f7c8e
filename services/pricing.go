package services

import "math"

// QuoteTotals holds the aggregated amounts for a quote.
type QuoteTotals struct {
	Subtotal      float64
	ManagementFee float64
	Tax           float64
	GrandTotal    float64
}

// CalcQuoteTotals folds the line items and the two percentage rates into the
// quote totals. Rounding is staged: the management fee and the tax are each
// rounded to the nearest whole currency unit (half away from zero) while the
// subtotal stays unrounded. The grand total is therefore generally not
// subtotal * (1 + mgmt%) * (1 + tax%), and exports must reproduce the staged
// figures exactly.
//
// Rates are applied as given; negative or out-of-range values propagate
// arithmetically without clamping.
func CalcQuoteTotals(items []Item, managementRate, taxRate float64) QuoteTotals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.LineTotal()
	}

	managementFee := math.Round(subtotal * managementRate / 100)
	taxable := subtotal + managementFee
	tax := math.Round(taxable * taxRate / 100)

	return QuoteTotals{
		Subtotal:      subtotal,
		ManagementFee: managementFee,
		Tax:           tax,
		GrandTotal:    taxable + tax,
	}
}
