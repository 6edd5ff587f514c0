package aggregate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"gorm.io/gorm"
)

type MenuAggregator struct {
	repo domain.Repository
}

func NewMenuAggregator(repo domain.Repository) *MenuAggregator {
	return &MenuAggregator{repo: repo}
}

func (a *MenuAggregator) Name() string { return "menu" }

func (a *MenuAggregator) ComputeForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (Result, error) {
	products, err := a.repo.ListMenuProducts(ctx, db, bookingID)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, product := range products {
		snap := product.Snapshot()
		result.add(product.TotalPrice, voucherDiscount(snap), voucherMethod(snap))
	}
	return result, nil
}
