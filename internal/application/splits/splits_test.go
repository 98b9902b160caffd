package splits

import (
	"errors"
	"testing"

	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidatePercentage_Range(t *testing.T) {
	for _, ok := range []string{"0.0001", "1", "50", "99.9999", "100"} {
		assert.NoError(t, ValidatePercentage(dec(ok)), ok)
	}
	for _, bad := range []string{"0", "-5", "100.0001", "250"} {
		err := ValidatePercentage(dec(bad))
		var oor *OutOfRangeError
		require.ErrorAs(t, err, &oor, bad)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Percentage must be greater than 0 and at most 100", err.Error())
	}
}

func TestValidatePercentage_DecimalPlaces(t *testing.T) {
	for _, ok := range []string{"33.3333", "12.50000", "0.0001"} {
		assert.NoError(t, ValidatePercentage(dec(ok)), ok)
	}

	err := ValidatePercentage(dec("33.33335"))
	assert.ErrorIs(t, err, ErrPercentagePrecision)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Percentage cannot have more than 4 decimal places", err.Error())

	// would round up to 100.0001 in storage
	assert.ErrorIs(t, ValidatePercentage(dec("100.00005")), ErrValidation)
	assert.ErrorIs(t, ValidatePercentage(dec("99.99995")), ErrPercentagePrecision)
}

func TestValidate_RejectsSharesThatRoundPastHundred(t *testing.T) {
	dealID := uuid.New()
	existing := []domain.DealSplit{
		{SplitID: uuid.New(), DealID: dealID, Percentage: dec("33.3333")},
		{SplitID: uuid.New(), DealID: dealID, Percentage: dec("33.3333")},
	}
	assert.ErrorIs(t, Validate(dealID, dec("33.33335"), existing, nil), ErrPercentagePrecision)
	assert.NoError(t, Validate(dealID, dec("33.3334"), existing, nil))
}

func TestValidate_OverAllocation(t *testing.T) {
	dealID := uuid.New()
	existing := []domain.DealSplit{
		{SplitID: uuid.New(), DealID: dealID, Percentage: dec("40")},
		{SplitID: uuid.New(), DealID: dealID, Percentage: dec("30")},
		{SplitID: uuid.New(), DealID: uuid.New(), Percentage: dec("90")},
	}

	err := Validate(dealID, dec("40"), existing, nil)
	var over *OverAllocationError
	require.ErrorAs(t, err, &over)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Cannot add 40%. Would exceed 100% (current total: 70%)", err.Error())

	assert.NoError(t, Validate(dealID, dec("30"), existing, nil))
}

func TestValidate_ExcludesEditedSplit(t *testing.T) {
	dealID := uuid.New()
	edited := uuid.New()
	existing := []domain.DealSplit{
		{SplitID: edited, DealID: dealID, Percentage: dec("60")},
		{SplitID: uuid.New(), DealID: dealID, Percentage: dec("30")},
	}
	assert.NoError(t, Validate(dealID, dec("70"), existing, &edited))
	assert.Error(t, Validate(dealID, dec("70.5"), existing, &edited))
}

func TestComputeAmount_RoundsHalfEven(t *testing.T) {
	assert.Equal(t, "2500", ComputeAmount(dec("10000"), dec("25")).String())
	assert.Equal(t, "333.33", ComputeAmount(dec("1000"), dec("33.3333")).String())
	// 0.125 and 0.135 sit exactly on the half cent
	assert.Equal(t, "0.12", ComputeAmount(dec("0.25"), dec("50")).String())
	assert.Equal(t, "0.14", ComputeAmount(dec("0.27"), dec("50")).String())
}

func TestRemainingPercentage_NeverNegative(t *testing.T) {
	assert.Equal(t, "100", RemainingPercentage(decimal.Zero).String())
	assert.Equal(t, "0", RemainingPercentage(dec("100")).String())
	assert.Equal(t, "0", RemainingPercentage(dec("120")).String())
}

func TestCalculateTotals_Boundaries(t *testing.T) {
	empty := CalculateTotals(nil)
	assert.Equal(t, "100", empty.RemainingPercentage.String())
	assert.Equal(t, 0, empty.SplitCount)
	assert.True(t, empty.CanSplit())

	full := CalculateTotals([]domain.DealSplit{
		{Percentage: dec("60"), Amount: dec("600")},
		{Percentage: dec("40"), Amount: dec("400")},
	})
	assert.Equal(t, "100", full.TotalPercentage.String())
	assert.Equal(t, "1000", full.TotalAmount.String())
	assert.Equal(t, "0", full.RemainingPercentage.String())
	assert.False(t, full.CanSplit())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("create", nil))
	assert.Equal(t, ErrDealNotFound, classify("create", ErrDealNotFound))
	assert.Equal(t, ErrPayeeAlreadySplit, classify("create", ErrPayeeAlreadySplit))

	err := classify("delete", errors.New("connection reset"))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "delete", pe.Op)
	assert.Equal(t, "failed to delete split: connection reset", err.Error())
}
