package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Org is a tenant. Deals, users and ledger records are scoped to one org.
type Org struct {
	OrgID     uuid.UUID      `gorm:"column:org_id;type:uuid;primaryKey" json:"org_id"`
	OrgName   string         `gorm:"column:org_name;not null;uniqueIndex" json:"org_name"`
	OrgCode   string         `gorm:"column:org_code;type:varchar(10);not null;uniqueIndex" json:"org_code"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Org) TableName() string {
	return "Orgs"
}

// BeforeCreate ensures org_id is set for DBs without default uuid.
func (o *Org) BeforeCreate(tx *gorm.DB) error {
	if o.OrgID == uuid.Nil {
		o.OrgID = uuid.New()
	}
	return nil
}
