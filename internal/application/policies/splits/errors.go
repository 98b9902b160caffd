package policies

import "errors"

var (
	ErrDealNotFound                    = errors.New("Deal not found")
	ErrPayeeNotFound                   = errors.New("Payee not found")
	ErrPayeeIsDealOwner                = errors.New("Deal owner cannot receive a split of their own deal")
	ErrOnlyOwnerOrManagerCanSplit      = errors.New("Only the deal owner or a manager can change splits on this deal")
	ErrCannotAccessDealsOutsideYourOrg = errors.New("Cannot access deals outside your organization")
)
