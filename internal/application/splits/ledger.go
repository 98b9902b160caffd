package splits

import (
	"context"
	"errors"
	"fmt"

	"dealsplit-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerSync keeps a deal's Activities consistent with its live split set:
// one owner record (IsSplit=false) carrying the retained share, one recipient
// record (IsSplit=true) per split. Every method runs on the caller's tx.
type LedgerSync struct {
	// SaleType is the activity type of the deal's qualifying owner record.
	SaleType string
}

func (l *LedgerSync) saleType() string {
	if l == nil || l.SaleType == "" {
		return domain.ActivityTypeSale
	}
	return l.SaleType
}

// OnSplitCreated runs after split has been persisted.
func (l *LedgerSync) OnSplitCreated(ctx context.Context, tx *gorm.DB, split *domain.DealSplit) error {
	tx = tx.WithContext(ctx)

	deal, err := loadDeal(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("load deal: %w", err)
	}
	live, err := loadDealSplits(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	total := TotalPercentage(split.DealID, withSplit(live, split), nil)

	owner, err := l.findOwnerRecord(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("find owner record: %w", err)
	}
	fresh := false
	if owner == nil {
		if deal == nil {
			return fmt.Errorf("synthesize owner record: %w", ErrDealNotFound)
		}
		if owner, err = l.synthesizeOwnerRecord(tx, deal, total); err != nil {
			return fmt.Errorf("synthesize owner record: %w", err)
		}
		fresh = true
	}

	base, err := baseValue(tx, deal, owner)
	if err != nil {
		return fmt.Errorf("derive base value: %w", err)
	}
	if !fresh {
		applyRetainedShare(owner, base, total, true)
		if err := tx.Save(owner).Error; err != nil {
			return fmt.Errorf("update owner record: %w", err)
		}
	}

	if err := upsertRecipientRecord(tx, owner, split, split.Percentage, base); err != nil {
		return fmt.Errorf("create recipient record: %w", err)
	}
	return nil
}

// OnSplitUpdated runs after split has been persisted with newPercentage.
func (l *LedgerSync) OnSplitUpdated(ctx context.Context, tx *gorm.DB, split *domain.DealSplit, newPercentage decimal.Decimal) error {
	tx = tx.WithContext(ctx)

	deal, err := loadDeal(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("load deal: %w", err)
	}
	owner, err := l.findOwnerRecord(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("find owner record: %w", err)
	}
	if owner == nil {
		return fmt.Errorf("find owner record: %w", ErrNotFound)
	}
	base, err := baseValue(tx, deal, owner)
	if err != nil {
		return fmt.Errorf("derive base value: %w", err)
	}

	if err := upsertRecipientRecord(tx, owner, split, newPercentage, base); err != nil {
		return fmt.Errorf("update recipient record: %w", err)
	}

	live, err := loadDealSplits(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	total := TotalPercentage(split.DealID, live, &split.SplitID).Add(newPercentage)

	applyRetainedShare(owner, base, total, true)
	if err := tx.Save(owner).Error; err != nil {
		return fmt.Errorf("update owner record: %w", err)
	}
	return nil
}

// OnSplitDeleted runs after split has been removed.
func (l *LedgerSync) OnSplitDeleted(ctx context.Context, tx *gorm.DB, split *domain.DealSplit) error {
	tx = tx.WithContext(ctx)

	owner, err := l.findOwnerRecord(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("find owner record: %w", err)
	}
	var base decimal.Decimal
	if owner != nil {
		deal, err := loadDeal(tx, split.DealID)
		if err != nil {
			return fmt.Errorf("load deal: %w", err)
		}
		// Derived before the recipient record goes away.
		if base, err = baseValue(tx, deal, owner); err != nil {
			return fmt.Errorf("derive base value: %w", err)
		}
	}

	if err := tx.Where("deal_id = ? AND payee_id = ? AND is_split = ?", split.DealID, split.PayeeID, true).
		Delete(&domain.Activity{}).Error; err != nil {
		return fmt.Errorf("delete recipient record: %w", err)
	}
	if owner == nil {
		return nil
	}
	live, err := loadDealSplits(tx, split.DealID)
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	remaining := TotalPercentage(split.DealID, live, &split.SplitID)
	stillSplit := countExcluding(live, split.SplitID) > 0

	applyRetainedShare(owner, base, remaining, stillSplit)
	if err := tx.Save(owner).Error; err != nil {
		return fmt.Errorf("update owner record: %w", err)
	}
	return nil
}

// Resync rebuilds the deal's ledger from its live split set: owner record
// synthesized or overwritten, recipient records upserted, orphans removed.
func (l *LedgerSync) Resync(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) error {
	tx = tx.WithContext(ctx)

	deal, err := loadDeal(tx, dealID)
	if err != nil {
		return fmt.Errorf("load deal: %w", err)
	}
	if deal == nil {
		return ErrDealNotFound
	}
	live, err := loadDealSplits(tx, dealID)
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	total := TotalPercentage(dealID, live, nil)

	owner, err := l.findOwnerRecord(tx, dealID)
	if err != nil {
		return fmt.Errorf("find owner record: %w", err)
	}
	if owner == nil {
		if len(live) == 0 {
			return nil
		}
		if owner, err = l.synthesizeOwnerRecord(tx, deal, total); err != nil {
			return fmt.Errorf("synthesize owner record: %w", err)
		}
	}
	applyRetainedShare(owner, deal.Value, total, len(live) > 0)
	if err := tx.Save(owner).Error; err != nil {
		return fmt.Errorf("update owner record: %w", err)
	}

	payees := make([]uuid.UUID, 0, len(live))
	for i := range live {
		if err := upsertRecipientRecord(tx, owner, &live[i], live[i].Percentage, deal.Value); err != nil {
			return fmt.Errorf("upsert recipient record: %w", err)
		}
		payees = append(payees, live[i].PayeeID)
	}

	orphans := tx.Where("deal_id = ? AND is_split = ?", dealID, true)
	if len(payees) > 0 {
		orphans = orphans.Where("payee_id NOT IN ?", payees)
	}
	if err := orphans.Delete(&domain.Activity{}).Error; err != nil {
		return fmt.Errorf("delete orphan records: %w", err)
	}
	return nil
}

func (l *LedgerSync) findOwnerRecord(tx *gorm.DB, dealID uuid.UUID) (*domain.Activity, error) {
	var a domain.Activity
	err := tx.Where("deal_id = ? AND is_split = ? AND type = ?", dealID, false, l.saleType()).
		Order(`"createdAt" ASC`).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// synthesizeOwnerRecord creates the owner's record already carrying the
// retained share for total.
func (l *LedgerSync) synthesizeOwnerRecord(tx *gorm.DB, deal *domain.Deal, total decimal.Decimal) (*domain.Activity, error) {
	owner := &domain.Activity{
		OrgID:   deal.OrgID,
		DealID:  deal.DealID,
		PayeeID: deal.OwnerID,
		Type:    l.saleType(),
		Details: "Deal closed: " + deal.DisplayName(),
	}
	applyRetainedShare(owner, deal.Value, total, true)
	if err := tx.Create(owner).Error; err != nil {
		return nil, err
	}
	return owner, nil
}

// applyRetainedShare sets the owner's amount and annotation for a split total.
// With no splits left the record is fully retained and unannotated.
func applyRetainedShare(owner *domain.Activity, base, total decimal.Decimal, split bool) {
	owner.Details = domain.BaseDetails(owner.Details)
	if !split {
		owner.SplitPercentage = nil
		owner.Amount = base.RoundBank(amountPlaces)
		return
	}
	pct := RemainingPercentage(total)
	owner.SplitPercentage = &pct
	owner.Amount = ComputeAmount(base, pct)
}

func upsertRecipientRecord(tx *gorm.DB, owner *domain.Activity, split *domain.DealSplit, pct, base decimal.Decimal) error {
	var rec domain.Activity
	err := tx.Where("deal_id = ? AND payee_id = ? AND is_split = ?", split.DealID, split.PayeeID, true).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = domain.Activity{
			OrgID:   owner.OrgID,
			DealID:  split.DealID,
			PayeeID: split.PayeeID,
			Type:    owner.Type,
			IsSplit: true,
		}
	case err != nil:
		return err
	}
	p := pct
	rec.Details = domain.BaseDetails(owner.Details)
	rec.SplitPercentage = &p
	rec.Amount = ComputeAmount(base, pct)
	rec.OriginalActivityID = &owner.ActivityID
	return tx.Save(&rec).Error
}

// baseValue is the deal value. When the deal cannot be read the full value is
// recovered from the owner record, or from a recipient record when the owner
// retains nothing.
func baseValue(tx *gorm.DB, deal *domain.Deal, owner *domain.Activity) (decimal.Decimal, error) {
	if deal != nil {
		return deal.Value, nil
	}
	if owner == nil {
		return decimal.Zero, nil
	}
	if owner.SplitPercentage == nil {
		return owner.Amount, nil
	}
	if owner.SplitPercentage.IsPositive() {
		return fullValue(owner.Amount, *owner.SplitPercentage), nil
	}
	var recs []domain.Activity
	if err := tx.Where("deal_id = ? AND is_split = ?", owner.DealID, true).Find(&recs).Error; err != nil {
		return decimal.Zero, err
	}
	for _, r := range recs {
		if r.SplitPercentage != nil && r.SplitPercentage.IsPositive() {
			return fullValue(r.Amount, *r.SplitPercentage), nil
		}
	}
	return decimal.Zero, ErrDealNotFound
}

// fullValue reverses ComputeAmount for a share of pct percent.
func fullValue(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(hundred).Div(pct).RoundBank(amountPlaces)
}

func loadDeal(tx *gorm.DB, dealID uuid.UUID) (*domain.Deal, error) {
	var d domain.Deal
	err := tx.Where("deal_id = ?", dealID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func loadDealSplits(tx *gorm.DB, dealID uuid.UUID) ([]domain.DealSplit, error) {
	var out []domain.DealSplit
	if err := tx.Where("deal_id = ?", dealID).Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// withSplit returns live with split present exactly once.
func withSplit(live []domain.DealSplit, split *domain.DealSplit) []domain.DealSplit {
	for _, s := range live {
		if s.SplitID == split.SplitID {
			return live
		}
	}
	return append(live, *split)
}

func countExcluding(live []domain.DealSplit, id uuid.UUID) int {
	n := 0
	for _, s := range live {
		if s.SplitID != id {
			n++
		}
	}
	return n
}
