package aggregate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"gorm.io/gorm"
)

// TentAggregator trusts each tent's stored subtotal (or its override);
// parameter rows are not re-derived.
type TentAggregator struct {
	repo domain.Repository
}

func NewTentAggregator(repo domain.Repository) *TentAggregator {
	return &TentAggregator{repo: repo}
}

func (a *TentAggregator) Name() string { return "tents" }

func (a *TentAggregator) ComputeForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (Result, error) {
	tents, err := a.repo.ListTents(ctx, db, bookingID)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, tent := range tents {
		snap := tent.Snapshot()
		result.add(tent.EffectiveSubtotal(), voucherDiscount(snap), voucherMethod(snap))
	}
	return result, nil
}
