package domain

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as JSON numbers, the way the POS screens send them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money rounds an amount to cents.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
