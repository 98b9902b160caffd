package splits

import (
	"context"
	"errors"
	"fmt"

	"dealsplit-backend/internal/application/emails"
	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerSyncStatus is the outcome of the ledger step of a split mutation.
type LedgerSyncStatus string

const (
	LedgerSyncOK      LedgerSyncStatus = "ok"
	LedgerSyncFailed  LedgerSyncStatus = "failed"
	LedgerSyncSkipped LedgerSyncStatus = "skipped"
)

// Result is a committed split mutation plus how its ledger sync went.
// A failed sync does not undo the split.
type Result struct {
	Split      *domain.DealSplit `json:"split"`
	LedgerSync LedgerSyncStatus  `json:"ledger_sync"`
	LedgerErr  error             `json:"-"`
}

// Service owns split writes and the ledger sync that follows each of them.
type Service struct {
	DB       *gorm.DB
	Ledger   *LedgerSync
	Notifier emails.Sender
	// AppBaseURL is used for links in notifications.
	AppBaseURL string
}

type CreateSplitInput struct {
	DealID     uuid.UUID
	PayeeID    uuid.UUID
	Percentage decimal.Decimal
	Notes      *string
}

type UpdateSplitInput struct {
	Percentage *decimal.Decimal
	Notes      *string
}

type ListFilter struct {
	OrgID   uuid.UUID
	DealID  *uuid.UUID
	PayeeID *uuid.UUID
}

func (s *Service) ledger() *LedgerSync {
	if s.Ledger == nil {
		return &LedgerSync{}
	}
	return s.Ledger
}

// ListSplits returns the org's splits, newest first.
func (s *Service) ListSplits(ctx context.Context, f ListFilter) ([]domain.DealSplit, error) {
	q := s.DB.WithContext(ctx).
		Model(&domain.DealSplit{}).
		Select(`"DealSplits".*`).
		Joins(`JOIN "Deals" ON "Deals".deal_id = "DealSplits".deal_id`).
		Where(`"Deals".org_id = ?`, f.OrgID)
	if f.DealID != nil {
		q = q.Where(`"DealSplits".deal_id = ?`, *f.DealID)
	}
	if f.PayeeID != nil {
		q = q.Where(`"DealSplits".payee_id = ?`, *f.PayeeID)
	}
	out := []domain.DealSplit{}
	if err := q.Order(`"DealSplits"."createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetSplit loads one split.
func (s *Service) GetSplit(ctx context.Context, splitID uuid.UUID) (*domain.DealSplit, error) {
	return findSplit(s.DB.WithContext(ctx), splitID)
}

// CreateSplit validates and persists a new split, then syncs the ledger.
func (s *Service) CreateSplit(ctx context.Context, in CreateSplitInput) (*Result, error) {
	if err := ValidatePercentage(in.Percentage); err != nil {
		return nil, err
	}

	var split domain.DealSplit
	var deal *domain.Deal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDeal(tx, in.DealID); err != nil {
			return err
		}
		var err error
		if deal, err = loadDeal(tx, in.DealID); err != nil {
			return err
		}
		if deal == nil {
			return ErrDealNotFound
		}
		if deal.OwnerID == in.PayeeID {
			return ErrPayeeIsOwner
		}
		var payee domain.User
		if err := tx.Select("user_id").Where("user_id = ? AND org_id = ?", in.PayeeID, deal.OrgID).
			First(&payee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayeeNotFound
			}
			return err
		}

		existing, err := loadDealSplits(tx, in.DealID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.PayeeID == in.PayeeID {
				return ErrPayeeAlreadySplit
			}
		}
		if err := Validate(in.DealID, in.Percentage, existing, nil); err != nil {
			return err
		}

		split = domain.DealSplit{
			DealID:     in.DealID,
			PayeeID:    in.PayeeID,
			Percentage: in.Percentage,
			Amount:     ComputeAmount(deal.Value, in.Percentage),
			Notes:      in.Notes,
		}
		return tx.Create(&split).Error
	})
	if err != nil {
		return nil, classify("create", err)
	}

	res := s.syncLedger(ctx, "create", &split, func(tx *gorm.DB) error {
		return s.ledger().OnSplitCreated(ctx, tx, &split)
	})
	s.notifySplitAssigned(ctx, deal, &split)
	return res, nil
}

// UpdateSplit changes a split's percentage and/or notes. The ledger is only
// synced when the percentage actually changed.
func (s *Service) UpdateSplit(ctx context.Context, splitID uuid.UUID, in UpdateSplitInput) (*Result, error) {
	if in.Percentage != nil {
		if err := ValidatePercentage(*in.Percentage); err != nil {
			return nil, err
		}
	}

	var split domain.DealSplit
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findSplit(tx, splitID)
		if err != nil {
			return err
		}
		if err := lockDeal(tx, current.DealID); err != nil {
			return err
		}
		existing, err := loadDealSplits(tx, current.DealID)
		if err != nil {
			return err
		}
		found := false
		for _, e := range existing {
			if e.SplitID == splitID {
				split, found = e, true
				break
			}
		}
		if !found {
			return ErrSplitNotFound
		}

		if in.Percentage != nil {
			if err := Validate(split.DealID, *in.Percentage, existing, &split.SplitID); err != nil {
				return err
			}
			if !in.Percentage.Equal(split.Percentage) {
				deal, err := loadDeal(tx, split.DealID)
				if err != nil {
					return err
				}
				base := split.Amount
				if deal != nil {
					base = deal.Value
				} else if split.Percentage.IsPositive() {
					base = fullValue(split.Amount, split.Percentage)
				}
				split.Percentage = *in.Percentage
				split.Amount = ComputeAmount(base, split.Percentage)
				changed = true
			}
		}
		if in.Notes != nil {
			split.Notes = in.Notes
		}
		return tx.Save(&split).Error
	})
	if err != nil {
		return nil, classify("update", err)
	}

	if !changed {
		return &Result{Split: &split, LedgerSync: LedgerSyncSkipped}, nil
	}
	return s.syncLedger(ctx, "update", &split, func(tx *gorm.DB) error {
		return s.ledger().OnSplitUpdated(ctx, tx, &split, split.Percentage)
	}), nil
}

// DeleteSplit removes a split, then syncs the ledger.
func (s *Service) DeleteSplit(ctx context.Context, splitID uuid.UUID) (*Result, error) {
	var split domain.DealSplit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findSplit(tx, splitID)
		if err != nil {
			return err
		}
		if err := lockDeal(tx, current.DealID); err != nil {
			return err
		}
		split = *current
		res := tx.Where("split_id = ?", splitID).Delete(&domain.DealSplit{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSplitNotFound
		}
		return nil
	})
	if err != nil {
		return nil, classify("delete", err)
	}

	return s.syncLedger(ctx, "delete", &split, func(tx *gorm.DB) error {
		return s.ledger().OnSplitDeleted(ctx, tx, &split)
	}), nil
}

// CalculateSplitTotals aggregates the deal's live splits.
func (s *Service) CalculateSplitTotals(ctx context.Context, dealID uuid.UUID) (Totals, error) {
	live, err := loadDealSplits(s.DB.WithContext(ctx), dealID)
	if err != nil {
		return Totals{}, err
	}
	return CalculateTotals(live), nil
}

// CanSplitDeal reports whether the deal has any percentage left to allocate.
func (s *Service) CanSplitDeal(ctx context.Context, dealID uuid.UUID) (bool, error) {
	t, err := s.CalculateSplitTotals(ctx, dealID)
	if err != nil {
		return false, err
	}
	return t.CanSplit(), nil
}

// ResyncLedger rebuilds the deal's ledger records from its live splits.
func (s *Service) ResyncLedger(ctx context.Context, dealID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDeal(tx, dealID); err != nil {
			return err
		}
		return s.ledger().Resync(ctx, tx, dealID)
	})
}

// syncLedger runs fn in its own transaction under the deal lock. Failures are
// logged and reported in the Result, never returned.
func (s *Service) syncLedger(ctx context.Context, step string, split *domain.DealSplit, fn func(tx *gorm.DB) error) *Result {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDeal(tx, split.DealID); err != nil {
			return err
		}
		return fn(tx)
	})
	if err != nil {
		log.Warn().Err(err).
			Str("deal_id", split.DealID.String()).
			Str("split_id", split.SplitID.String()).
			Str("step", step).
			Msg("ledger sync failed")
		return &Result{Split: split, LedgerSync: LedgerSyncFailed, LedgerErr: err}
	}
	return &Result{Split: split, LedgerSync: LedgerSyncOK}
}

func (s *Service) notifySplitAssigned(ctx context.Context, deal *domain.Deal, split *domain.DealSplit) {
	if s.Notifier == nil || deal == nil {
		return
	}
	var payee domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", split.PayeeID).First(&payee).Error; err != nil {
		log.Warn().Err(err).Str("split_id", split.SplitID.String()).Msg("split notification: payee lookup failed")
		return
	}
	var owner domain.User
	ownerName := ""
	if err := s.DB.WithContext(ctx).Where("user_id = ?", deal.OwnerID).First(&owner).Error; err == nil {
		ownerName = owner.Fullname
	}
	msg := emails.SplitAssigned{
		ToEmail:    payee.Email,
		ToName:     payee.Fullname,
		DealName:   deal.DisplayName(),
		OwnerName:  ownerName,
		Percentage: split.Percentage.String(),
		Amount:     split.Amount.StringFixed(amountPlaces),
		DealURL:    fmt.Sprintf("%s/deals/%s", s.AppBaseURL, deal.DealID),
	}
	if err := s.Notifier.SendSplitAssigned(ctx, msg); err != nil {
		log.Warn().Err(err).Str("split_id", split.SplitID.String()).Msg("split notification failed")
	}
}

func findSplit(tx *gorm.DB, splitID uuid.UUID) (*domain.DealSplit, error) {
	var split domain.DealSplit
	err := tx.Where("split_id = ?", splitID).First(&split).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSplitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &split, nil
}
