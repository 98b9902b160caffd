package policies

import (
	"errors"

	"dealsplit-backend/internal/constants"
	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ValidateSplitAccessParams struct {
	ActorUserID uuid.UUID
	ActorRole   string
	OrgID       uuid.UUID
	DealID      uuid.UUID
	// PayeeID is set when a split is being created.
	PayeeID *uuid.UUID
}

// ValidateSplitAccess checks that the actor may change splits on the deal.
// Returns the deal on success.
func ValidateSplitAccess(db *gorm.DB, params ValidateSplitAccessParams) (*domain.Deal, error) {
	var deal domain.Deal
	if err := db.Where("deal_id = ?", params.DealID).First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	// Tenant isolation
	if deal.OrgID != params.OrgID {
		return nil, ErrCannotAccessDealsOutsideYourOrg
	}

	if params.PayeeID != nil {
		if *params.PayeeID == deal.OwnerID {
			return nil, ErrPayeeIsDealOwner
		}
		var payee domain.User
		if err := db.Where("user_id = ? AND org_id = ?", *params.PayeeID, params.OrgID).First(&payee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPayeeNotFound
			}
			return nil, err
		}
	}

	if params.ActorUserID != deal.OwnerID && !constants.CanManageOthersSplits(params.ActorRole) {
		return nil, ErrOnlyOwnerOrManagerCanSplit
	}
	return &deal, nil
}
