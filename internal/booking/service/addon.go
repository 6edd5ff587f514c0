package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/internal/booking/aggregate"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/pricing"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"gorm.io/gorm"
)

func (s *Service) AddAddon(ctx context.Context, req domain.AddAddonRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "add_addon",
		kind: auditdomain.ActionItemAdd,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			now := s.clock.Now()
			item := &domain.BookingItem{
				ID:        s.genID.Generate(),
				BookingID: booking.ID,
				CreatedAt: now,
			}
			amount, snap, err := s.fillAddon(ctx, tx, booking, item, nil, req.Addon, now)
			if err != nil {
				return 0, "", err
			}
			if err := s.repo.InsertItem(ctx, tx, item); err != nil {
				return 0, "", err
			}
			return item.ID, fmt.Sprintf("Added add-on %s x%d, amount %d%s",
				item.ItemID, item.Quantity, amount, voucherSuffix(snap)), nil
		},
	})
}

func (s *Service) UpdateAddon(ctx context.Context, req domain.UpdateAddonRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "update_addon",
		kind: auditdomain.ActionItemEdit,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			item, line, err := s.findAddon(ctx, tx, booking.ID, req.ItemID)
			if err != nil {
				return 0, "", err
			}
			before := aggregate.AddonAmount(*item, line)

			amount, snap, err := s.fillAddon(ctx, tx, booking, item, line.Voucher, req.Addon, s.clock.Now())
			if err != nil {
				return 0, "", err
			}
			if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
				return 0, "", err
			}
			return item.ID, fmt.Sprintf("Updated add-on %s: amount %d -> %d%s",
				item.ItemID, before, amount, voucherSuffix(snap)), nil
		},
	})
}

func (s *Service) DeleteAddon(ctx context.Context, req domain.DeleteAddonRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "delete_addon",
		kind: auditdomain.ActionItemDelete,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			item, line, err := s.findAddon(ctx, tx, booking.ID, req.ItemID)
			if err != nil {
				return 0, "", err
			}
			if err := s.repo.DeleteItem(ctx, tx, booking.ID, item.ID); err != nil {
				return 0, "", err
			}
			return item.ID, fmt.Sprintf("Removed add-on %s (amount %d)",
				item.ItemID, aggregate.AddonAmount(*item, line)), nil
		},
	})
}

func (s *Service) findAddon(ctx context.Context, tx *gorm.DB, bookingID, itemID snowflake.ID) (*domain.BookingItem, domain.AddonLine, error) {
	item, err := s.repo.FindItem(ctx, tx, bookingID, itemID)
	if err != nil {
		return nil, domain.AddonLine{}, err
	}
	if item == nil {
		return nil, domain.AddonLine{}, domain.ErrItemNotFound
	}
	kind, err := item.Line()
	if err != nil {
		return nil, domain.AddonLine{}, err
	}
	line, ok := kind.(domain.AddonLine)
	if !ok {
		// parameter rows are edited through their tent
		return nil, domain.AddonLine{}, domain.ErrNotAnAddon
	}
	return item, line, nil
}

// fillAddon writes the add-on columns and metadata onto item and returns
// the line amount with the voucher now attached.
func (s *Service) fillAddon(ctx context.Context, tx *gorm.DB, booking *domain.Booking, item *domain.BookingItem, previous *domain.VoucherSnapshot, in domain.AddonInput, now time.Time) (int64, *domain.VoucherSnapshot, error) {
	if in.AddonItemID == 0 {
		return 0, nil, domain.ErrInvalidItem
	}
	if err := validateLine(in.Quantity, in.UnitPrice); err != nil {
		return 0, nil, err
	}
	if in.PriceOverride != nil && *in.PriceOverride < 0 {
		return 0, nil, domain.ErrInvalidPrice
	}
	mode, err := pricing.ParsePricingMode(string(in.PricingMode))
	if err != nil {
		return 0, nil, err
	}
	tentID := nullableID(in.BookingTentID)
	if err := s.ensureTent(ctx, tx, booking.ID, tentID); err != nil {
		return 0, nil, err
	}

	addonItemID := in.AddonItemID
	item.BookingTentID = tentID
	item.ItemID = in.AddonItemID
	item.AddonItemID = &addonItemID
	item.ParameterID = nullableID(in.ParameterID)
	item.Quantity = in.Quantity
	item.UnitPrice = in.UnitPrice
	item.UpdatedAt = now

	line := domain.AddonLine{
		PricingMode:   mode,
		DateRange:     in.DateRange,
		SelectedDate:  in.SelectedDate,
		PriceOverride: in.PriceOverride,
	}
	amount := aggregate.AddonAmount(*item, line)

	vctx := s.validationContext(booking, in.AddonItemID, in.CategoryID, amount, voucherdomain.ApplyCommonItem)
	line.Voucher, err = s.applyVoucher(ctx, tx, previous, in.VoucherCode, vctx)
	if err != nil {
		return 0, nil, err
	}

	item.Metadata, err = domain.EncodeLine(line)
	if err != nil {
		return 0, nil, err
	}
	return amount, line.Voucher, nil
}
