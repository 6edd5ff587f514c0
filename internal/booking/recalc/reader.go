package recalc

import (
	"context"
	"math"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/campstay/internal/payment/domain"
	"github.com/smallbiznis/campstay/internal/pricing"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ReaderParams struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	Engine   *Engine
	Payments paymentdomain.Service
}

// Reader serves read-time derivations: balance and deposit due are never
// stored as authoritative values.
type Reader struct {
	db       *gorm.DB
	repo     domain.Repository
	engine   *Engine
	payments paymentdomain.Service
}

func NewReader(p ReaderParams) *Reader {
	return &Reader{db: p.DB, repo: p.Repo, engine: p.Engine, payments: p.Payments}
}

// Summary is one consistent snapshot of a booking's money.
type Summary struct {
	BookingID    snowflake.ID            `json:"booking_id"`
	Version      int64                   `json:"version"`
	Currency     string                  `json:"currency"`
	Live         domain.Totals           `json:"live"`
	Stored       domain.Totals           `json:"stored"`
	Stale        bool                    `json:"stale"`
	DepositDue   int64                   `json:"deposit_due"`
	SettledTotal int64                   `json:"settled_total"`
	BalanceDue   int64                   `json:"balance_due"`
	Payments     []paymentdomain.Payment `json:"payments"`
}

func (r *Reader) LiveTotal(ctx context.Context, bookingID snowflake.ID) (domain.Totals, error) {
	return r.engine.LiveTotal(ctx, bookingID)
}

// BalanceDue is the live total minus settled payments, floored at zero.
func (r *Reader) BalanceDue(ctx context.Context, bookingID snowflake.ID) (int64, error) {
	live, err := r.engine.LiveTotal(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	settled, err := r.payments.SumSettled(ctx, r.db, bookingID)
	if err != nil {
		return 0, err
	}
	return BalanceDue(live.TotalAmount, settled), nil
}

// DepositDue reapplies the stored deposit ratio to the live total.
func (r *Reader) DepositDue(ctx context.Context, bookingID snowflake.ID) (int64, error) {
	booking, err := r.repo.FindBooking(ctx, r.db, bookingID)
	if err != nil {
		return 0, err
	}
	if booking == nil {
		return 0, domain.ErrBookingNotFound
	}
	live, err := r.engine.Compute(ctx, r.db, booking)
	if err != nil {
		return 0, err
	}
	return ApplyDepositRatio(live.TotalAmount, AgreedDepositRatio(booking)), nil
}

func (r *Reader) Summary(ctx context.Context, bookingID snowflake.ID) (Summary, error) {
	var summary Summary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := r.repo.FindBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		live, err := r.engine.Compute(ctx, tx, booking)
		if err != nil {
			return err
		}
		settled, err := r.payments.SumSettled(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		payments, err := r.payments.ListPayments(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		stored := booking.StoredTotals()
		summary = Summary{
			BookingID:    booking.ID,
			Version:      booking.Version,
			Currency:     booking.Currency,
			Live:         live,
			Stored:       stored,
			Stale:        live != stored,
			DepositDue:   ApplyDepositRatio(live.TotalAmount, AgreedDepositRatio(booking)),
			SettledTotal: settled,
			BalanceDue:   BalanceDue(live.TotalAmount, settled),
			Payments:     payments,
		}
		return nil
	})
	return summary, err
}

// AgreedDepositRatio prefers the persisted ratio and falls back to the
// stored deposit/total pair for bookings edited before it was recorded.
func AgreedDepositRatio(b *domain.Booking) float64 {
	if b == nil {
		return 1
	}
	if r := b.DepositRatio; r != nil && *r > 0 && *r <= 1 {
		return *r
	}
	return DepositRatio(b.DepositDue, b.TotalAmount)
}

// DepositRatio is storedDeposit/storedTotal capped at 1, or 1 when either is zero.
func DepositRatio(storedDeposit, storedTotal int64) float64 {
	if storedTotal <= 0 || storedDeposit <= 0 || storedDeposit >= storedTotal {
		return 1
	}
	return float64(storedDeposit) / float64(storedTotal)
}

func ApplyDepositRatio(total int64, ratio float64) int64 {
	if total <= 0 || math.IsNaN(ratio) || ratio <= 0 {
		return 0
	}
	return pricing.RoundCurrency(float64(total) * ratio)
}

func BalanceDue(total, settled int64) int64 {
	return pricing.MaxInt64(0, total-settled)
}
