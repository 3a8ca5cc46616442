package domain

import "github.com/shopspring/decimal"

// RowValue computes the monetary value of a row as price times holdings.
func RowValue(price, holdings float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(holdings))
}

// Share returns part/total as a percentage. A zero total yields zero rather
// than propagating a division error.
func Share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100))
}
