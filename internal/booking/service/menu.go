package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"gorm.io/gorm"
)

func (s *Service) AddMenuProduct(ctx context.Context, req domain.AddMenuProductRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "add_menu_product",
		kind: auditdomain.ActionItemAdd,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			now := s.clock.Now()
			product := &domain.BookingMenuProduct{
				ID:        s.genID.Generate(),
				BookingID: booking.ID,
				CreatedAt: now,
			}
			if err := s.fillMenuProduct(ctx, tx, booking, product, nil, req.Product, now); err != nil {
				return 0, "", err
			}
			if err := s.repo.InsertMenuProduct(ctx, tx, product); err != nil {
				return 0, "", err
			}
			return product.ID, fmt.Sprintf("Added menu item %s x%d, total %d%s",
				product.MenuItemID, product.Quantity, product.TotalPrice, voucherSuffix(product.Snapshot())), nil
		},
	})
}

func (s *Service) UpdateMenuProduct(ctx context.Context, req domain.UpdateMenuProductRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "update_menu_product",
		kind: auditdomain.ActionItemEdit,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			product, err := s.repo.FindMenuProduct(ctx, tx, booking.ID, req.ProductID)
			if err != nil {
				return 0, "", err
			}
			if product == nil {
				return 0, "", domain.ErrMenuProductNotFound
			}

			before := product.TotalPrice
			if err := s.fillMenuProduct(ctx, tx, booking, product, product.Snapshot(), req.Product, s.clock.Now()); err != nil {
				return 0, "", err
			}
			if err := s.repo.UpdateMenuProduct(ctx, tx, product); err != nil {
				return 0, "", err
			}
			return product.ID, fmt.Sprintf("Updated menu item %s: total %d -> %d%s",
				product.MenuItemID, before, product.TotalPrice, voucherSuffix(product.Snapshot())), nil
		},
	})
}

func (s *Service) DeleteMenuProduct(ctx context.Context, req domain.DeleteMenuProductRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "delete_menu_product",
		kind: auditdomain.ActionItemDelete,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			product, err := s.repo.FindMenuProduct(ctx, tx, booking.ID, req.ProductID)
			if err != nil {
				return 0, "", err
			}
			if product == nil {
				return 0, "", domain.ErrMenuProductNotFound
			}
			if err := s.repo.DeleteMenuProduct(ctx, tx, booking.ID, product.ID); err != nil {
				return 0, "", err
			}
			return product.ID, fmt.Sprintf("Removed menu item %s (total %d)", product.MenuItemID, product.TotalPrice), nil
		},
	})
}

// fillMenuProduct writes total_price explicitly; menu rows have no pricing mode.
func (s *Service) fillMenuProduct(ctx context.Context, tx *gorm.DB, booking *domain.Booking, product *domain.BookingMenuProduct, previous *domain.VoucherSnapshot, in domain.MenuProductInput, now time.Time) error {
	if in.MenuItemID == 0 {
		return domain.ErrInvalidItem
	}
	if err := validateLine(in.Quantity, in.UnitPrice); err != nil {
		return err
	}
	tentID := nullableID(in.BookingTentID)
	if err := s.ensureTent(ctx, tx, booking.ID, tentID); err != nil {
		return err
	}

	product.BookingTentID = tentID
	product.MenuItemID = in.MenuItemID
	product.Quantity = in.Quantity
	product.UnitPrice = in.UnitPrice
	product.TotalPrice = in.Quantity * in.UnitPrice
	product.ServingDate = in.ServingDate
	product.UpdatedAt = now

	vctx := s.validationContext(booking, in.MenuItemID, in.CategoryID, product.TotalPrice, voucherdomain.ApplyMenu)
	snap, err := s.applyVoucher(ctx, tx, previous, in.VoucherCode, vctx)
	if err != nil {
		return err
	}
	product.VoucherFields = domain.VoucherFieldsFrom(snap)
	return nil
}
