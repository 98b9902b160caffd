package deals

import (
	"context"
	"errors"
	"strings"

	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrDealNotFound     = errors.New("Deal not found")
	ErrDealNameRequired = errors.New("Deal name or company is required")
	ErrNegativeValue    = errors.New("Deal value cannot be negative")
	ErrOwnerNotInOrg    = errors.New("Deal owner must belong to your organization")
)

type Service struct {
	DB *gorm.DB
}

type CreateDealInput struct {
	OrgID   uuid.UUID
	OwnerID uuid.UUID
	Company string
	Name    string
	Value   decimal.Decimal
}

// GetDeal returns the deal if it belongs to orgID.
func (s *Service) GetDeal(ctx context.Context, orgID, dealID uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := s.DB.WithContext(ctx).Where("deal_id = ? AND org_id = ?", dealID, orgID).First(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// ListDeals returns the org's deals, newest first.
func (s *Service) ListDeals(ctx context.Context, orgID uuid.UUID) ([]domain.Deal, error) {
	out := []domain.Deal{}
	err := s.DB.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order(`"createdAt" DESC`).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreateDeal(ctx context.Context, in CreateDealInput) (*domain.Deal, error) {
	in.Company = strings.TrimSpace(in.Company)
	in.Name = strings.TrimSpace(in.Name)
	if in.Company == "" && in.Name == "" {
		return nil, ErrDealNameRequired
	}
	if in.Value.IsNegative() {
		return nil, ErrNegativeValue
	}

	var owner domain.User
	err := s.DB.WithContext(ctx).Where("user_id = ? AND org_id = ?", in.OwnerID, in.OrgID).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOwnerNotInOrg
	}
	if err != nil {
		return nil, err
	}

	deal := domain.Deal{
		OrgID:   in.OrgID,
		OwnerID: in.OwnerID,
		Company: in.Company,
		Name:    in.Name,
		Value:   in.Value.Round(2),
	}
	if err := s.DB.WithContext(ctx).Create(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}
