package aggregate

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/pricing"
	"gorm.io/gorm"
)

// AddonAggregator recomputes each add-on from quantity, unit price and
// pricing mode; the stored total_price column is ignored.
type AddonAggregator struct {
	repo domain.Repository
}

func NewAddonAggregator(repo domain.Repository) *AddonAggregator {
	return &AddonAggregator{repo: repo}
}

func (a *AddonAggregator) Name() string { return "addons" }

func (a *AddonAggregator) ComputeForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (Result, error) {
	items, err := a.repo.ListItems(ctx, db, bookingID)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, item := range items {
		kind, err := item.Line()
		if err != nil {
			return Result{}, fmt.Errorf("booking item %s: %w", item.ID, err)
		}

		switch line := kind.(type) {
		case domain.AddonLine:
			result.add(AddonAmount(item, line), voucherDiscount(line.Voucher), voucherMethod(line.Voucher))
		case domain.TentParameterLine:
			// counted through the tent subtotal
		}
	}
	return result, nil
}

// AddonAmount is the price override when set, otherwise the line amount.
func AddonAmount(item domain.BookingItem, line domain.AddonLine) int64 {
	if line.PriceOverride != nil {
		return *line.PriceOverride
	}
	return pricing.LineAmount(item.Quantity, item.UnitPrice, line.PricingMode)
}
