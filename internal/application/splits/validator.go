package splits

import (
	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentagePlaces matches the decimal(7,4) percentage columns.
const percentagePlaces = 4

// ValidatePercentage rejects percentages outside (0, 100] and percentages
// finer than the column can store. Trailing zeros are fine.
func ValidatePercentage(p decimal.Decimal) error {
	if !p.IsPositive() || p.GreaterThan(hundred) {
		return &OutOfRangeError{Percentage: p}
	}
	if !p.Equal(p.Round(percentagePlaces)) {
		return ErrPercentagePrecision
	}
	return nil
}

// TotalPercentage sums the percentages of the splits that belong to dealID,
// skipping excluding when set.
func TotalPercentage(dealID uuid.UUID, splits []domain.DealSplit, excluding *uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		if s.DealID != dealID {
			continue
		}
		if excluding != nil && s.SplitID == *excluding {
			continue
		}
		total = total.Add(s.Percentage)
	}
	return total
}

// Validate checks a proposed percentage against the other splits of the deal.
// Create passes no exclusion; update excludes the split being edited.
func Validate(dealID uuid.UUID, proposed decimal.Decimal, existing []domain.DealSplit, excluding *uuid.UUID) error {
	if err := ValidatePercentage(proposed); err != nil {
		return err
	}
	total := TotalPercentage(dealID, existing, excluding)
	if total.Add(proposed).GreaterThan(hundred) {
		return &OverAllocationError{Proposed: proposed, CurrentTotal: total}
	}
	return nil
}
