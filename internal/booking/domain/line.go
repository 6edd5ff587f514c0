package domain

import (
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/pricing"
	"gorm.io/datatypes"
)

const lineTypeAddon = "addon"

// LineKind is the decoded metadata of a BookingItem. It is either a
// TentParameterLine or an AddonLine.
type LineKind interface {
	isLineKind()
}

// TentParameterLine prices one parameter (adults, children...) of a tent.
// The tent's stored subtotal already includes it.
type TentParameterLine struct {
	PricingMode pricing.PricingMode
}

type AddonLine struct {
	PricingMode   pricing.PricingMode
	DateRange     *DateRange
	SelectedDate  *string
	Voucher       *VoucherSnapshot
	PriceOverride *int64
}

func (TentParameterLine) isLineKind() {}
func (AddonLine) isLineKind()         {}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// VoucherSnapshot freezes what a voucher granted when it was attached.
type VoucherSnapshot struct {
	ID                snowflake.ID `json:"id"`
	Code              string       `json:"code"`
	DiscountType      string       `json:"discountType"`
	DiscountValue     float64      `json:"discountValue"`
	DiscountAmount    int64        `json:"discountAmount"`
	MaxDiscountAmount *int64       `json:"maxDiscountAmount,omitempty"`
	ApplicationMethod string       `json:"applicationMethod,omitempty"`
}

type lineMetadata struct {
	Type          string           `json:"type,omitempty"`
	PricingMode   string           `json:"pricingMode,omitempty"`
	DateRange     *DateRange       `json:"dateRange,omitempty"`
	SelectedDate  *string          `json:"selectedDate,omitempty"`
	Voucher       *VoucherSnapshot `json:"voucher,omitempty"`
	PriceOverride *int64           `json:"priceOverride,omitempty"`
}

// DecodeLine parses item metadata. Empty metadata is a per_person tent
// parameter line; unknown types and pricing modes are rejected.
func DecodeLine(raw datatypes.JSON) (LineKind, error) {
	var meta lineMetadata
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidLineMetadata, err)
		}
	}

	mode, err := pricing.ParsePricingMode(meta.PricingMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLineMetadata, err)
	}

	switch meta.Type {
	case "":
		return TentParameterLine{PricingMode: mode}, nil
	case lineTypeAddon:
		return AddonLine{
			PricingMode:   mode,
			DateRange:     meta.DateRange,
			SelectedDate:  meta.SelectedDate,
			Voucher:       meta.Voucher,
			PriceOverride: meta.PriceOverride,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidLineMetadata, meta.Type)
	}
}

func EncodeLine(kind LineKind) (datatypes.JSON, error) {
	var meta lineMetadata
	switch line := kind.(type) {
	case TentParameterLine:
		meta.PricingMode = string(line.PricingMode)
	case AddonLine:
		meta = lineMetadata{
			Type:          lineTypeAddon,
			PricingMode:   string(line.PricingMode),
			DateRange:     line.DateRange,
			SelectedDate:  line.SelectedDate,
			Voucher:       line.Voucher,
			PriceOverride: line.PriceOverride,
		}
	default:
		return nil, ErrInvalidLineMetadata
	}

	b, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
