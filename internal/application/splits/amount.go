package splits

import "github.com/shopspring/decimal"

// amountPlaces is the currency precision. Amounts round half-even.
const amountPlaces = 2

// ComputeAmount returns dealValue * percentage / 100, rounded to the cent.
func ComputeAmount(dealValue, percentage decimal.Decimal) decimal.Decimal {
	return dealValue.Mul(percentage).Div(hundred).RoundBank(amountPlaces)
}

// RemainingPercentage returns max(0, 100 - total).
func RemainingPercentage(total decimal.Decimal) decimal.Decimal {
	r := hundred.Sub(total)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
