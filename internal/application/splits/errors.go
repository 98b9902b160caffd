package splits

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation is wrapped by every error raised before a write.
	ErrValidation = errors.New("invalid split")
	// ErrNotFound is wrapped by the split, deal and payee lookups.
	ErrNotFound = errors.New("not found")

	ErrSplitNotFound = fmt.Errorf("Split %w", ErrNotFound)
	ErrDealNotFound  = fmt.Errorf("Deal %w", ErrNotFound)
	ErrPayeeNotFound = fmt.Errorf("Payee %w", ErrNotFound)
)

var (
	ErrPayeeAlreadySplit error = validationError("Payee already has a split on this deal")
	ErrPayeeIsOwner      error = validationError("Deal owner cannot receive a split of their own deal")
	// ErrPercentagePrecision keeps stored percentages equal to validated ones.
	ErrPercentagePrecision error = validationError("Percentage cannot have more than 4 decimal places")
)

type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

// OutOfRangeError is returned when a percentage is not in (0, 100].
type OutOfRangeError struct {
	Percentage decimal.Decimal
}

func (e *OutOfRangeError) Error() string {
	return "Percentage must be greater than 0 and at most 100"
}

func (e *OutOfRangeError) Unwrap() error { return ErrValidation }

// OverAllocationError is returned when the proposed percentage would push the
// deal's split total over 100. CurrentTotal excludes the split being edited.
type OverAllocationError struct {
	Proposed     decimal.Decimal
	CurrentTotal decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("Cannot add %s%%. Would exceed 100%% (current total: %s%%)",
		e.Proposed.String(), e.CurrentTotal.String())
}

func (e *OverAllocationError) Unwrap() error { return ErrValidation }

// PersistenceError wraps a failed read or write of the split record itself.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s split: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// classify passes validation, not-found and persistence errors through and
// wraps anything else as a persistence failure of op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
