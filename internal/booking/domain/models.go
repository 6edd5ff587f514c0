package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCheckedIn  BookingStatus = "checked_in"
	BookingStatusCheckedOut BookingStatus = "checked_out"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// Booking holds the persisted totals. SubtotalAmount, DiscountAmount,
// TaxAmount and TotalAmount are only ever written together by the
// recalculation engine.
type Booking struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	ZoneID        snowflake.ID  `json:"zone_id" gorm:"column:zone_id;not null;index"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(32);not null"`
	PaymentStatus string        `json:"payment_status" gorm:"type:varchar(32);not null;default:'pending'"`
	CheckInDate   time.Time     `json:"check_in_date" gorm:"not null"`
	CheckOutDate  time.Time     `json:"check_out_date" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"type:varchar(8);not null;default:'VND'"`

	SubtotalAmount int64 `json:"subtotal_amount" gorm:"not null;default:0"`
	DiscountAmount int64 `json:"discount_amount" gorm:"not null;default:0"`
	TaxAmount      int64 `json:"tax_amount" gorm:"not null;default:0"`
	TotalAmount    int64 `json:"total_amount" gorm:"not null;default:0"`
	DepositDue     int64 `json:"deposit_due" gorm:"not null;default:0"`
	// DepositRatio is the agreed deposit share, kept apart from the
	// deposit/total pair so it survives the total dropping to zero.
	DepositRatio *float64 `json:"deposit_ratio,omitempty" gorm:"column:deposit_ratio"`

	Version   int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

func (b Booking) StoredTotals() Totals {
	return Totals{
		Subtotal:       b.SubtotalAmount,
		DiscountAmount: b.DiscountAmount,
		TaxAmount:      b.TaxAmount,
		TotalAmount:    b.TotalAmount,
	}
}

// VoucherFields is the voucher snapshot persisted on tent and menu rows.
type VoucherFields struct {
	VoucherID           *snowflake.ID `json:"voucher_id,omitempty" gorm:"column:voucher_id"`
	VoucherCode         *string       `json:"voucher_code,omitempty" gorm:"column:voucher_code;type:varchar(64)"`
	DiscountType        *string       `json:"discount_type,omitempty" gorm:"column:discount_type;type:varchar(16)"`
	DiscountValue       *float64      `json:"discount_value,omitempty" gorm:"column:discount_value"`
	DiscountMaxAmount   *int64        `json:"discount_max_amount,omitempty" gorm:"column:discount_max_amount"`
	DiscountApplication *string       `json:"discount_application,omitempty" gorm:"column:discount_application;type:varchar(32)"`
	DiscountAmount      int64         `json:"discount_amount" gorm:"column:discount_amount;not null;default:0"`
}

// Snapshot returns nil when no voucher is attached.
func (f VoucherFields) Snapshot() *VoucherSnapshot {
	if f.VoucherCode == nil || *f.VoucherCode == "" {
		return nil
	}
	snap := &VoucherSnapshot{
		Code:              *f.VoucherCode,
		DiscountAmount:    f.DiscountAmount,
		MaxDiscountAmount: f.DiscountMaxAmount,
	}
	if f.VoucherID != nil {
		snap.ID = *f.VoucherID
	}
	if f.DiscountType != nil {
		snap.DiscountType = *f.DiscountType
	}
	if f.DiscountValue != nil {
		snap.DiscountValue = *f.DiscountValue
	}
	if f.DiscountApplication != nil {
		snap.ApplicationMethod = *f.DiscountApplication
	}
	return snap
}

// VoucherFieldsFrom flattens a snapshot into row columns; nil clears them.
func VoucherFieldsFrom(snap *VoucherSnapshot) VoucherFields {
	if snap == nil {
		return VoucherFields{}
	}
	id := snap.ID
	code := snap.Code
	discountType := snap.DiscountType
	value := snap.DiscountValue
	method := snap.ApplicationMethod
	return VoucherFields{
		VoucherID:           &id,
		VoucherCode:         &code,
		DiscountType:        &discountType,
		DiscountValue:       &value,
		DiscountMaxAmount:   snap.MaxDiscountAmount,
		DiscountApplication: &method,
		DiscountAmount:      snap.DiscountAmount,
	}
}

type BookingTent struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID        snowflake.ID `json:"booking_id" gorm:"column:booking_id;not null;index"`
	ItemID           snowflake.ID `json:"item_id" gorm:"column:item_id;not null"`
	CheckInDate      time.Time    `json:"check_in_date" gorm:"not null"`
	CheckOutDate     time.Time    `json:"check_out_date" gorm:"not null"`
	Nights           int          `json:"nights" gorm:"not null;default:1"`
	Subtotal         int64        `json:"subtotal" gorm:"not null;default:0"`
	SubtotalOverride *int64       `json:"subtotal_override,omitempty" gorm:"column:subtotal_override"`

	VoucherFields `gorm:"embedded"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (BookingTent) TableName() string { return "booking_tents" }

// EffectiveSubtotal is the override when an admin set one.
func (t BookingTent) EffectiveSubtotal() int64 {
	if t.SubtotalOverride != nil {
		return *t.SubtotalOverride
	}
	return t.Subtotal
}

type BookingParameter struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID         snowflake.ID `json:"booking_id" gorm:"column:booking_id;not null;index"`
	BookingTentID     snowflake.ID `json:"booking_tent_id" gorm:"column:booking_tent_id;not null;index"`
	ParameterID       snowflake.ID `json:"parameter_id" gorm:"column:parameter_id;not null"`
	Label             string       `json:"label" gorm:"type:text;not null"`
	BookedQuantity    int64        `json:"booked_quantity" gorm:"not null;default:0"`
	ControlsInventory bool         `json:"controls_inventory" gorm:"not null;default:false"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
}

func (BookingParameter) TableName() string { return "booking_parameters" }

// BookingItem is either a tent-parameter pricing row or an add-on row,
// distinguished by Metadata (see Line). TotalPrice is a generated column
// computed as quantity*unit_price and is wrong for per_group lines, so
// totals are never derived from it.
type BookingItem struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	BookingID     snowflake.ID   `json:"booking_id" gorm:"column:booking_id;not null;index"`
	BookingTentID *snowflake.ID  `json:"booking_tent_id,omitempty" gorm:"column:booking_tent_id;index"`
	ItemID        snowflake.ID   `json:"item_id" gorm:"column:item_id;not null"`
	AddonItemID   *snowflake.ID  `json:"addon_item_id,omitempty" gorm:"column:addon_item_id"`
	ParameterID   *snowflake.ID  `json:"parameter_id,omitempty" gorm:"column:parameter_id"`
	Quantity      int64          `json:"quantity" gorm:"not null;default:0"`
	UnitPrice     int64          `json:"unit_price" gorm:"not null;default:0"`
	TotalPrice    int64          `json:"total_price" gorm:"->;type:bigint GENERATED ALWAYS AS (quantity * unit_price) STORED"`
	Metadata      datatypes.JSON `json:"metadata" gorm:"column:metadata"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"not null"`
}

func (BookingItem) TableName() string { return "booking_items" }

func (i BookingItem) Line() (LineKind, error) {
	return DecodeLine(i.Metadata)
}

type BookingMenuProduct struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	BookingID     snowflake.ID  `json:"booking_id" gorm:"column:booking_id;not null;index"`
	BookingTentID *snowflake.ID `json:"booking_tent_id,omitempty" gorm:"column:booking_tent_id;index"`
	MenuItemID    snowflake.ID  `json:"menu_item_id" gorm:"column:menu_item_id;not null"`
	Quantity      int64         `json:"quantity" gorm:"not null;default:0"`
	UnitPrice     int64         `json:"unit_price" gorm:"not null;default:0"`
	TotalPrice    int64         `json:"total_price" gorm:"not null;default:0"`
	ServingDate   *time.Time    `json:"serving_date,omitempty" gorm:"column:serving_date"`

	VoucherFields `gorm:"embedded"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (BookingMenuProduct) TableName() string { return "booking_menu_products" }

// Totals is the derived financial state of a booking.
type Totals struct {
	Subtotal       int64 `json:"subtotal_amount"`
	DiscountAmount int64 `json:"discount_amount"`
	TaxAmount      int64 `json:"tax_amount"`
	TotalAmount    int64 `json:"total_amount"`
}

// Balanced reports whether total == subtotal + tax - discount.
func (t Totals) Balanced() bool {
	return t.TotalAmount == t.Subtotal+t.TaxAmount-t.DiscountAmount
}
