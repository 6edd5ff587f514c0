package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/pricing"
)

// MutationMeta identifies who edits which booking. ExpectedVersion, when
// set, must equal the booking's current version.
type MutationMeta struct {
	BookingID       snowflake.ID
	ActorID         string
	ExpectedVersion *int64
}

type ParameterInput struct {
	ParameterID       snowflake.ID        `json:"parameter_id"`
	Label             string              `json:"label"`
	Quantity          int64               `json:"quantity"`
	UnitPrice         int64               `json:"unit_price"`
	PricingMode       pricing.PricingMode `json:"pricing_mode"`
	ControlsInventory bool                `json:"controls_inventory"`
}

// TentInput is the full editable state of a tent; updates replace it.
// Zero dates fall back to the booking's stay dates.
type TentInput struct {
	ItemID           snowflake.ID     `json:"item_id"`
	CategoryID       snowflake.ID     `json:"category_id"`
	CheckInDate      time.Time        `json:"check_in_date"`
	CheckOutDate     time.Time        `json:"check_out_date"`
	Parameters       []ParameterInput `json:"parameters"`
	SubtotalOverride *int64           `json:"subtotal_override"`
	VoucherCode      string           `json:"voucher_code"`
}

type AddonInput struct {
	AddonItemID   snowflake.ID        `json:"addon_item_id"`
	CategoryID    snowflake.ID        `json:"category_id"`
	BookingTentID *snowflake.ID       `json:"booking_tent_id"`
	ParameterID   *snowflake.ID       `json:"parameter_id"`
	Quantity      int64               `json:"quantity"`
	UnitPrice     int64               `json:"unit_price"`
	PricingMode   pricing.PricingMode `json:"pricing_mode"`
	DateRange     *DateRange          `json:"date_range"`
	SelectedDate  *string             `json:"selected_date"`
	PriceOverride *int64              `json:"price_override"`
	VoucherCode   string              `json:"voucher_code"`
}

type MenuProductInput struct {
	MenuItemID    snowflake.ID  `json:"menu_item_id"`
	CategoryID    snowflake.ID  `json:"category_id"`
	BookingTentID *snowflake.ID `json:"booking_tent_id"`
	Quantity      int64         `json:"quantity"`
	UnitPrice     int64         `json:"unit_price"`
	ServingDate   *time.Time    `json:"serving_date"`
	VoucherCode   string        `json:"voucher_code"`
}

type AddTentRequest struct {
	MutationMeta
	Tent TentInput
}

type UpdateTentRequest struct {
	MutationMeta
	TentID snowflake.ID
	Tent   TentInput
}

type DeleteTentRequest struct {
	MutationMeta
	TentID snowflake.ID
}

type AddAddonRequest struct {
	MutationMeta
	Addon AddonInput
}

type UpdateAddonRequest struct {
	MutationMeta
	ItemID snowflake.ID
	Addon  AddonInput
}

type DeleteAddonRequest struct {
	MutationMeta
	ItemID snowflake.ID
}

type AddMenuProductRequest struct {
	MutationMeta
	Product MenuProductInput
}

type UpdateMenuProductRequest struct {
	MutationMeta
	ProductID snowflake.ID
	Product   MenuProductInput
}

type DeleteMenuProductRequest struct {
	MutationMeta
	ProductID snowflake.ID
}

type MutationResult struct {
	BookingID  snowflake.ID `json:"booking_id"`
	AffectedID snowflake.ID `json:"affected_id"`
	Version    int64        `json:"version"`
	Totals     Totals       `json:"totals"`
	DepositDue int64        `json:"deposit_due"`
}

// Service runs admin edits. Each call is one transaction that ends with
// recalculated totals and an edit log entry, or changes nothing.
type Service interface {
	AddTent(ctx context.Context, req AddTentRequest) (*MutationResult, error)
	UpdateTent(ctx context.Context, req UpdateTentRequest) (*MutationResult, error)
	DeleteTent(ctx context.Context, req DeleteTentRequest) (*MutationResult, error)

	AddAddon(ctx context.Context, req AddAddonRequest) (*MutationResult, error)
	UpdateAddon(ctx context.Context, req UpdateAddonRequest) (*MutationResult, error)
	DeleteAddon(ctx context.Context, req DeleteAddonRequest) (*MutationResult, error)

	AddMenuProduct(ctx context.Context, req AddMenuProductRequest) (*MutationResult, error)
	UpdateMenuProduct(ctx context.Context, req UpdateMenuProductRequest) (*MutationResult, error)
	DeleteMenuProduct(ctx context.Context, req DeleteMenuProductRequest) (*MutationResult, error)
}
