package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deal is a sales opportunity. Its Value is the basis of every split and
// retained amount.
type Deal struct {
	DealID    uuid.UUID       `gorm:"column:deal_id;type:uuid;primaryKey" json:"deal_id"`
	OrgID     uuid.UUID       `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	OwnerID   uuid.UUID       `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	Company   string          `gorm:"column:company" json:"company"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Value     decimal.Decimal `gorm:"column:value;type:decimal(18,2);not null;default:0" json:"value"`
	CreatedAt time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Deal) TableName() string {
	return "Deals"
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.DealID == uuid.Nil {
		d.DealID = uuid.New()
	}
	return nil
}

// DisplayName is "Company - Name", or whichever of the two is set.
func (d Deal) DisplayName() string {
	switch {
	case d.Company != "" && d.Name != "":
		return d.Company + " - " + d.Name
	case d.Company != "":
		return d.Company
	default:
		return d.Name
	}
}
