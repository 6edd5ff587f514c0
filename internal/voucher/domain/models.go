package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/pricing"
	"gorm.io/datatypes"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ApplicationType is the kind of booking line a voucher may discount.
type ApplicationType string

const (
	ApplyAccommodation ApplicationType = "accommodation"
	ApplyCommonItem    ApplicationType = "common_item"
	ApplyMenu          ApplicationType = "menu"
	ApplyAll           ApplicationType = "all"
)

// Voucher is a row of glamping_discounts.
type Voucher struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Code string       `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name string       `gorm:"type:text;not null"`

	DiscountType      DiscountType              `gorm:"column:discount_type;type:varchar(16);not null"`
	DiscountValue     float64                   `gorm:"column:discount_value;not null"`
	MaxDiscountAmount *int64                    `gorm:"column:max_discount_amount"`
	ApplicationType   ApplicationType           `gorm:"column:application_type;type:varchar(32);not null;default:'all'"`
	ApplicationMethod pricing.ApplicationMethod `gorm:"column:application_method;type:varchar(32);not null;default:'per_booking_before_tax'"`

	ZoneIDs     datatypes.JSON `gorm:"column:zone_ids"`
	ItemIDs     datatypes.JSON `gorm:"column:item_ids"`
	CategoryIDs datatypes.JSON `gorm:"column:category_ids"`

	ValidFrom   *time.Time `gorm:"column:valid_from"`
	ValidUntil  *time.Time `gorm:"column:valid_until"`
	MaxUses     *int64     `gorm:"column:max_uses"`
	CurrentUses int64      `gorm:"column:current_uses;not null;default:0"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Voucher) TableName() string { return "glamping_discounts" }

// Scope is the decoded zone/item/category restriction. Empty lists mean unrestricted.
type Scope struct {
	ZoneIDs     []snowflake.ID
	ItemIDs     []snowflake.ID
	CategoryIDs []snowflake.ID
}

func (v Voucher) Scope() (Scope, error) {
	var scope Scope
	for _, f := range []struct {
		name string
		raw  datatypes.JSON
		dst  *[]snowflake.ID
	}{
		{"zone_ids", v.ZoneIDs, &scope.ZoneIDs},
		{"item_ids", v.ItemIDs, &scope.ItemIDs},
		{"category_ids", v.CategoryIDs, &scope.CategoryIDs},
	} {
		ids, err := decodeIDs(f.raw)
		if err != nil {
			return Scope{}, fmt.Errorf("%w: %s: %v", ErrVoucherInvalidScope, f.name, err)
		}
		*f.dst = ids
	}
	return scope, nil
}

// decodeIDs accepts bigint arrays as written by the admin side as well as
// quoted ids.
func decodeIDs(raw datatypes.JSON) ([]snowflake.ID, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var numbers []json.Number
	if err := json.Unmarshal(raw, &numbers); err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(numbers))
	for _, n := range numbers {
		id, err := snowflake.ParseString(n.String())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EncodeIDs renders a scope list the way Scope decodes it.
func EncodeIDs(ids ...snowflake.ID) datatypes.JSON {
	if len(ids) == 0 {
		return nil
	}
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

// ValidationContext describes the line a code is being applied to.
type ValidationContext struct {
	ZoneID          snowflake.ID
	ItemID          snowflake.ID
	CategoryID      snowflake.ID
	CheckIn         time.Time
	TotalAmount     int64
	ApplicationType ApplicationType
}

// Result is a validated discount against ValidationContext.TotalAmount.
type Result struct {
	VoucherID         snowflake.ID              `json:"voucher_id"`
	Code              string                    `json:"code"`
	DiscountType      DiscountType              `json:"discount_type"`
	DiscountValue     float64                   `json:"discount_value"`
	DiscountAmount    int64                     `json:"discount_amount"`
	MaxDiscountAmount *int64                    `json:"max_discount_amount,omitempty"`
	ApplicationMethod pricing.ApplicationMethod `json:"application_method"`
}
