// Package aggregate sums one category of booking lines (tents, add-ons,
// menu products) straight from storage.
package aggregate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/pricing"
	"gorm.io/gorm"
)

// Result is one category's contribution to a booking.
type Result struct {
	Subtotal       int64
	DiscountAmount int64
	// Lines feeds per-line tax composition.
	Lines []pricing.TaxLine
}

func (r *Result) add(amount, discount int64, method pricing.ApplicationMethod) {
	r.Subtotal += amount
	r.DiscountAmount += discount
	r.Lines = append(r.Lines, pricing.TaxLine{Amount: amount, Discount: discount, Method: method})
}

type Aggregator interface {
	Name() string
	ComputeForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (Result, error)
}

// Set is the fixed list of aggregators a booking total is built from.
type Set []Aggregator

func NewSet(repo domain.Repository) Set {
	return Set{
		NewTentAggregator(repo),
		NewAddonAggregator(repo),
		NewMenuAggregator(repo),
	}
}

func voucherMethod(snap *domain.VoucherSnapshot) pricing.ApplicationMethod {
	if snap == nil {
		return ""
	}
	method, err := pricing.ParseApplicationMethod(snap.ApplicationMethod)
	if err != nil {
		return pricing.PerBookingBeforeTax
	}
	return method
}

func voucherDiscount(snap *domain.VoucherSnapshot) int64 {
	if snap == nil {
		return 0
	}
	return snap.DiscountAmount
}
