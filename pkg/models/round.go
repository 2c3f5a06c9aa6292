package models

import "github.com/shopspring/decimal"

// Round2 rounds x half away from zero to 2 decimal places.
func Round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// Change returns the rounded absolute and percent change from old to cur.
// The percent change is 0 when old is 0.
func Change(old, cur float64) (diff, pct float64) {
	d := decimal.NewFromFloat(cur).Sub(decimal.NewFromFloat(old)).Round(2)
	diff = d.InexactFloat64()
	if old == 0 {
		return diff, 0
	}
	pct = d.Div(decimal.NewFromFloat(old)).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return diff, pct
}
