package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DealSplit is one payee's percentage claim on a deal, on top of the
// owner's implicit retained remainder. Amount is derived from the deal value
// and stored for display.
type DealSplit struct {
	SplitID    uuid.UUID       `gorm:"column:split_id;type:uuid;primaryKey" json:"split_id"`
	DealID     uuid.UUID       `gorm:"column:deal_id;type:uuid;not null;index" json:"deal_id"`
	PayeeID    uuid.UUID       `gorm:"column:payee_id;type:uuid;not null;index" json:"payee_id"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:decimal(7,4);not null" json:"percentage"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null;default:0" json:"amount"`
	Notes      *string         `gorm:"column:notes" json:"notes"`
	CreatedAt  time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (DealSplit) TableName() string {
	return "DealSplits"
}

func (s *DealSplit) BeforeCreate(tx *gorm.DB) error {
	if s.SplitID == uuid.Nil {
		s.SplitID = uuid.New()
	}
	return nil
}
