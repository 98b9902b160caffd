package domain

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ActivityTypeSale is the qualifying monetary event that anchors a deal's
// owner record.
const ActivityTypeSale = "sale"

// Activity is a ledger record: money attributed to one payee for one deal.
// The owner's retained record has IsSplit=false; each split recipient has one
// record with IsSplit=true pointing back at the owner record.
//
// Details holds only the base text. The annotated text is rendered from
// (Details, IsSplit, SplitPercentage) so recomputation never stacks suffixes.
type Activity struct {
	ActivityID         uuid.UUID        `gorm:"column:activity_id;type:uuid;primaryKey" json:"activity_id"`
	OrgID              uuid.UUID        `gorm:"column:org_id;type:uuid;not null;index" json:"org_id"`
	DealID             uuid.UUID        `gorm:"column:deal_id;type:uuid;not null;index" json:"deal_id"`
	PayeeID            uuid.UUID        `gorm:"column:payee_id;type:uuid;not null;index" json:"payee_id"`
	Type               string           `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Amount             decimal.Decimal  `gorm:"column:amount;type:decimal(18,2);not null;default:0" json:"amount"`
	Details            string           `gorm:"column:details;not null;default:''" json:"-"`
	IsSplit            bool             `gorm:"column:is_split;not null;default:false" json:"is_split"`
	SplitPercentage    *decimal.Decimal `gorm:"column:split_percentage;type:decimal(7,4)" json:"split_percentage"`
	OriginalActivityID *uuid.UUID       `gorm:"column:original_activity_id;type:uuid" json:"original_activity_id"`
	CreatedAt          time.Time        `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt          time.Time        `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Activity) TableName() string {
	return "Activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ActivityID == uuid.Nil {
		a.ActivityID = uuid.New()
	}
	return nil
}

// RenderedDetails returns the human readable description.
func (a Activity) RenderedDetails() string {
	return RenderDetails(a.Details, a.IsSplit, a.SplitPercentage)
}

// MarshalJSON sends both the rendered text and the base text.
func (a Activity) MarshalJSON() ([]byte, error) {
	type plain Activity
	return json.Marshal(struct {
		plain
		Details     string `json:"details"`
		BaseDetails string `json:"base_details"`
	}{
		plain:       plain(a),
		Details:     a.RenderedDetails(),
		BaseDetails: a.Details,
	})
}

var splitSuffixRe = regexp.MustCompile(`\s*\(\d+(?:\.\d+)?% (?:retained after split|split)\)\s*$`)

// BaseDetails strips any trailing "(N% retained after split)" or "(N% split)"
// annotations from a legacy description.
func BaseDetails(s string) string {
	for splitSuffixRe.MatchString(s) {
		s = splitSuffixRe.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// RenderDetails appends the split annotation for pct to base. A nil pct on an
// owner record means fully retained and renders base unchanged.
func RenderDetails(base string, isSplit bool, pct *decimal.Decimal) string {
	base = BaseDetails(base)
	if pct == nil {
		return base
	}
	var suffix string
	if isSplit {
		suffix = "(" + pct.String() + "% split)"
	} else {
		suffix = "(" + pct.String() + "% retained after split)"
	}
	if base == "" {
		return suffix
	}
	return base + " " + suffix
}
