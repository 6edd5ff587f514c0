package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/pricing"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"gorm.io/gorm"
)

func (s *Service) AddTent(ctx context.Context, req domain.AddTentRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "add_tent",
		kind: auditdomain.ActionItemAdd,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			now := s.clock.Now()
			tent := &domain.BookingTent{
				ID:        s.genID.Generate(),
				BookingID: booking.ID,
				CreatedAt: now,
			}
			if err := s.fillTent(ctx, tx, booking, tent, nil, req.Tent, now); err != nil {
				return 0, "", err
			}
			if err := s.repo.InsertTent(ctx, tx, tent); err != nil {
				return 0, "", err
			}
			if err := s.replaceParameters(ctx, tx, tent, req.Tent, now); err != nil {
				return 0, "", err
			}
			return tent.ID, fmt.Sprintf("Added tent %s for %d night(s), subtotal %d%s",
				tent.ItemID, tent.Nights, tent.EffectiveSubtotal(), voucherSuffix(tent.Snapshot())), nil
		},
	})
}

func (s *Service) UpdateTent(ctx context.Context, req domain.UpdateTentRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "update_tent",
		kind: auditdomain.ActionItemEdit,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			tent, err := s.repo.FindTent(ctx, tx, booking.ID, req.TentID)
			if err != nil {
				return 0, "", err
			}
			if tent == nil {
				return 0, "", domain.ErrTentNotFound
			}

			previous, err := s.repo.ListParameters(ctx, tx, tent.ID)
			if err != nil {
				return 0, "", err
			}
			guestsBefore := guestCount(previous)

			before := tent.EffectiveSubtotal()
			now := s.clock.Now()
			if err := s.fillTent(ctx, tx, booking, tent, tent.Snapshot(), req.Tent, now); err != nil {
				return 0, "", err
			}
			if err := s.repo.UpdateTent(ctx, tx, tent); err != nil {
				return 0, "", err
			}
			if err := s.replaceParameters(ctx, tx, tent, req.Tent, now); err != nil {
				return 0, "", err
			}
			return tent.ID, fmt.Sprintf("Updated tent %s: subtotal %d -> %d, guests %d -> %d%s",
				tent.ItemID, before, tent.EffectiveSubtotal(), guestsBefore, inputGuestCount(req.Tent),
				voucherSuffix(tent.Snapshot())), nil
		},
	})
}

func (s *Service) DeleteTent(ctx context.Context, req domain.DeleteTentRequest) (*domain.MutationResult, error) {
	return s.run(ctx, mutation{
		op:   "delete_tent",
		kind: auditdomain.ActionItemDelete,
		meta: req.MutationMeta,
		apply: func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error) {
			tent, err := s.repo.FindTent(ctx, tx, booking.ID, req.TentID)
			if err != nil {
				return 0, "", err
			}
			if tent == nil {
				return 0, "", domain.ErrTentNotFound
			}
			if err := s.repo.DeleteTent(ctx, tx, booking.ID, tent.ID); err != nil {
				return 0, "", err
			}
			return tent.ID, fmt.Sprintf("Removed tent %s (subtotal %d) with its add-ons and menu products",
				tent.ItemID, tent.EffectiveSubtotal()), nil
		},
	})
}

// fillTent validates input and writes the derived tent fields: nights,
// subtotal from the parameter lines, override and voucher.
func (s *Service) fillTent(ctx context.Context, tx *gorm.DB, booking *domain.Booking, tent *domain.BookingTent, previous *domain.VoucherSnapshot, in domain.TentInput, now time.Time) error {
	if in.ItemID == 0 {
		return domain.ErrInvalidItem
	}
	checkIn, checkOut := in.CheckInDate, in.CheckOutDate
	if checkIn.IsZero() {
		checkIn = booking.CheckInDate
	}
	if checkOut.IsZero() {
		checkOut = booking.CheckOutDate
	}
	nights, err := countNights(checkIn, checkOut)
	if err != nil {
		return err
	}
	if in.SubtotalOverride != nil && *in.SubtotalOverride < 0 {
		return domain.ErrInvalidPrice
	}

	var subtotal int64
	for _, param := range in.Parameters {
		if err := validateLine(param.Quantity, param.UnitPrice); err != nil {
			return err
		}
		mode, err := pricing.ParsePricingMode(string(param.PricingMode))
		if err != nil {
			return err
		}
		subtotal += pricing.LineAmount(param.Quantity, param.UnitPrice, mode)
	}

	tent.ItemID = in.ItemID
	tent.CheckInDate = checkIn
	tent.CheckOutDate = checkOut
	tent.Nights = nights
	tent.Subtotal = subtotal
	tent.SubtotalOverride = in.SubtotalOverride
	tent.UpdatedAt = now

	vctx := s.validationContext(booking, in.ItemID, in.CategoryID, tent.EffectiveSubtotal(), voucherdomain.ApplyAccommodation)
	vctx.CheckIn = checkIn
	snap, err := s.applyVoucher(ctx, tx, previous, in.VoucherCode, vctx)
	if err != nil {
		return err
	}
	tent.VoucherFields = domain.VoucherFieldsFrom(snap)
	return nil
}

// replaceParameters swaps the tent's whole parameter set.
func (s *Service) replaceParameters(ctx context.Context, tx *gorm.DB, tent *domain.BookingTent, in domain.TentInput, now time.Time) error {
	params := make([]domain.BookingParameter, 0, len(in.Parameters))
	items := make([]domain.BookingItem, 0, len(in.Parameters))
	for _, param := range in.Parameters {
		mode, err := pricing.ParsePricingMode(string(param.PricingMode))
		if err != nil {
			return err
		}
		meta, err := domain.EncodeLine(domain.TentParameterLine{PricingMode: mode})
		if err != nil {
			return err
		}
		parameterID := param.ParameterID
		tentID := tent.ID

		params = append(params, domain.BookingParameter{
			ID:                s.genID.Generate(),
			BookingID:         tent.BookingID,
			BookingTentID:     tent.ID,
			ParameterID:       param.ParameterID,
			Label:             strings.TrimSpace(param.Label),
			BookedQuantity:    param.Quantity,
			ControlsInventory: param.ControlsInventory,
			CreatedAt:         now,
		})
		items = append(items, domain.BookingItem{
			ID:            s.genID.Generate(),
			BookingID:     tent.BookingID,
			BookingTentID: &tentID,
			ItemID:        tent.ItemID,
			ParameterID:   &parameterID,
			Quantity:      param.Quantity,
			UnitPrice:     param.UnitPrice,
			Metadata:      meta,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return s.repo.ReplaceTentParameters(ctx, tx, tent.ID, params, items)
}

// countNights rounds partial days up.
func countNights(checkIn, checkOut time.Time) (int, error) {
	if checkIn.IsZero() || checkOut.IsZero() || !checkOut.After(checkIn) {
		return 0, domain.ErrInvalidDateRange
	}
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24)), nil
}

func validateLine(quantity, unitPrice int64) error {
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return domain.ErrInvalidPrice
	}
	return nil
}

func voucherSuffix(snap *domain.VoucherSnapshot) string {
	if snap == nil {
		return ""
	}
	return fmt.Sprintf(", voucher %s (-%d)", snap.Code, snap.DiscountAmount)
}

// guestCount sums the quantities of inventory-controlling parameters,
// which are the guest lines of a tent.
func guestCount(params []domain.BookingParameter) int64 {
	var n int64
	for _, p := range params {
		if p.ControlsInventory {
			n += p.BookedQuantity
		}
	}
	return n
}

func inputGuestCount(in domain.TentInput) int64 {
	var n int64
	for _, p := range in.Parameters {
		if p.ControlsInventory {
			n += p.Quantity
		}
	}
	return n
}
