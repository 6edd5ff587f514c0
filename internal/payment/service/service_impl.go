package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/config"
	"github.com/smallbiznis/campstay/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Repo    domain.Repository
	Pricing *config.PricingConfigHolder
}

type Service struct {
	db      *gorm.DB
	repo    domain.Repository
	pricing *config.PricingConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{db: p.DB, repo: p.Repo, pricing: p.Pricing}
}

// SumSettled totals the booking's payments in a settled status. The
// settled set comes from pricing config and follows its reloads.
func (s *Service) SumSettled(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.SumByStatus(ctx, db, bookingID, s.pricing.Get().SettledPaymentStatuses)
}

// ListPayments returns every payment on the booking in the order it was
// recorded, whatever its status.
func (s *Service) ListPayments(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.Payment, error) {
	if db == nil {
		db = s.db
	}
	items, err := s.repo.ListByBooking(ctx, db, bookingID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Payment{}
	}
	return items, nil
}
