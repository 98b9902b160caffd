package splits

import (
	"dealsplit-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Totals aggregates a deal's current split set.
type Totals struct {
	TotalPercentage     decimal.Decimal `json:"total_percentage"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	RemainingPercentage decimal.Decimal `json:"remaining_percentage"`
	SplitCount          int             `json:"split_count"`
}

// CanSplit reports whether any percentage is left to allocate.
func (t Totals) CanSplit() bool {
	return t.RemainingPercentage.IsPositive()
}

// CalculateTotals is a pure aggregation over splits.
func CalculateTotals(splits []domain.DealSplit) Totals {
	t := Totals{TotalPercentage: decimal.Zero, TotalAmount: decimal.Zero}
	for _, s := range splits {
		t.TotalPercentage = t.TotalPercentage.Add(s.Percentage)
		t.TotalAmount = t.TotalAmount.Add(s.Amount)
	}
	t.SplitCount = len(splits)
	t.RemainingPercentage = RemainingPercentage(t.TotalPercentage)
	return t
}
