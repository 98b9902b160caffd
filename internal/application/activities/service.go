package activities

import (
	"context"
	"errors"

	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
	// SaleType is the activity type recorded for closed deals.
	SaleType string
}

type Filter struct {
	OrgID   uuid.UUID
	DealID  *uuid.UUID
	PayeeID *uuid.UUID
	IsSplit *bool
}

func (s *Service) saleType() string {
	if s.SaleType == "" {
		return domain.ActivityTypeSale
	}
	return s.SaleType
}

// List returns the org's ledger records, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.Activity, error) {
	q := s.DB.WithContext(ctx).Where("org_id = ?", f.OrgID)
	if f.DealID != nil {
		q = q.Where("deal_id = ?", *f.DealID)
	}
	if f.PayeeID != nil {
		q = q.Where("payee_id = ?", *f.PayeeID)
	}
	if f.IsSplit != nil {
		q = q.Where("is_split = ?", *f.IsSplit)
	}
	out := []domain.Activity{}
	if err := q.Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// RecordSale creates the deal owner's sale record on tx unless the deal
// already has one. created is false when an existing record was returned.
func (s *Service) RecordSale(ctx context.Context, tx *gorm.DB, deal *domain.Deal, amount decimal.Decimal, details string) (rec *domain.Activity, created bool, err error) {
	tx = tx.WithContext(ctx)

	var existing domain.Activity
	err = tx.Where("deal_id = ? AND is_split = ? AND type = ?", deal.DealID, false, s.saleType()).
		Order(`"createdAt" ASC`).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if details == "" {
		details = "Deal closed: " + deal.DisplayName()
	}
	rec = &domain.Activity{
		OrgID:   deal.OrgID,
		DealID:  deal.DealID,
		PayeeID: deal.OwnerID,
		Type:    s.saleType(),
		Amount:  amount.RoundBank(2),
		Details: domain.BaseDetails(details),
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
