package pricing

import "github.com/shopspring/decimal"

// NotCalculated is displayed in place of a shipping fee that has not been quoted yet.
const NotCalculated = "Not calculated"

// FormatMoney renders v with two decimals. Rounding happens here only, never in computation.
func FormatMoney(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// FormatShipping distinguishes an unquoted fee from a computed zero-cost delivery.
func FormatShipping(fee float64, calculated bool) string {
	if !calculated {
		return NotCalculated
	}
	return FormatMoney(fee)
}
