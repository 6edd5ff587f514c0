// Package recalc derives booking totals from the line items in storage.
// Recalculate persists them inside a caller's transaction; LiveTotal runs
// the same computation for reads.
package recalc

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/aggregate"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/clock"
	"github.com/smallbiznis/campstay/internal/config"
	"github.com/smallbiznis/campstay/internal/observability/metrics"
	"github.com/smallbiznis/campstay/internal/observability/tracing"
	"github.com/smallbiznis/campstay/internal/pricing"
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	resultSuccess   = "success"
	resultFailure   = "failure"
	resultInvariant = "invariant_violation"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	Aggregators aggregate.Set
	Rates       taxdomain.RateProvider
	Pricing     *config.PricingConfigHolder
	Clock       clock.Clock      `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type Engine struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	aggregators aggregate.Set
	rates       taxdomain.RateProvider
	pricing     *config.PricingConfigHolder
	clock       clock.Clock
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

func NewEngine(p Params) *Engine {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		db:          p.DB,
		log:         p.Log.Named("recalc.engine"),
		repo:        p.Repo,
		aggregators: p.Aggregators,
		rates:       p.Rates,
		pricing:     p.Pricing,
		clock:       clk,
		metrics:     p.Metrics,
		tracer:      otel.Tracer("campstay/recalc"),
	}
}

// Recalculate recomputes the four derived totals of a booking and writes
// them with a single UPDATE on tx. It never commits and never touches
// deposit_due. Calling it twice with no row changes in between writes the
// same values.
func (e *Engine) Recalculate(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID) (domain.Totals, error) {
	ctx, span := e.tracer.Start(ctx, "recalc.Recalculate",
		trace.WithAttributes(attribute.String("booking_id", bookingID.String())),
	)
	defer span.End()

	booking, err := e.repo.FindBooking(ctx, tx, bookingID)
	if err != nil {
		return e.fail(ctx, span, bookingID, fmt.Errorf("%w: load booking: %w", domain.ErrRecalculationFailed, err))
	}
	if booking == nil {
		return e.fail(ctx, span, bookingID, domain.ErrBookingNotFound)
	}

	totals, err := e.Compute(ctx, tx, booking)
	if err != nil {
		return e.fail(ctx, span, bookingID, fmt.Errorf("%w: %w", domain.ErrRecalculationFailed, err))
	}
	if !totals.Balanced() {
		e.metrics.RecordRecalculation(ctx, resultInvariant)
		e.log.Error("recalculated totals do not balance",
			zap.String("booking_id", bookingID.String()),
			zap.Int64("subtotal", totals.Subtotal),
			zap.Int64("discount", totals.DiscountAmount),
			zap.Int64("tax", totals.TaxAmount),
			zap.Int64("total", totals.TotalAmount),
		)
		span.RecordError(tracing.SafeError(domain.ErrInvariantViolation))
		return domain.Totals{}, domain.ErrInvariantViolation
	}

	if err := e.repo.UpdateTotals(ctx, tx, bookingID, totals, e.clock.Now()); err != nil {
		return e.fail(ctx, span, bookingID, fmt.Errorf("%w: persist totals: %w", domain.ErrRecalculationFailed, err))
	}

	e.metrics.RecordRecalculation(ctx, resultSuccess)
	span.SetAttributes(attribute.Int64("total_amount", totals.TotalAmount))
	return totals, nil
}

// LiveTotal computes current totals without writing anything.
func (e *Engine) LiveTotal(ctx context.Context, bookingID snowflake.ID) (domain.Totals, error) {
	ctx, span := e.tracer.Start(ctx, "recalc.LiveTotal",
		trace.WithAttributes(attribute.String("booking_id", bookingID.String())),
	)
	defer span.End()

	booking, err := e.repo.FindBooking(ctx, e.db, bookingID)
	if err != nil {
		return domain.Totals{}, err
	}
	if booking == nil {
		return domain.Totals{}, domain.ErrBookingNotFound
	}
	return e.Compute(ctx, e.db, booking)
}

// Compute runs every aggregator for booking on db and composes tax. It is
// the only place totals are derived.
func (e *Engine) Compute(ctx context.Context, db *gorm.DB, booking *domain.Booking) (domain.Totals, error) {
	var (
		rawSubtotal int64
		discount    int64
		lines       []pricing.TaxLine
	)
	for _, agg := range e.aggregators {
		res, err := agg.ComputeForBooking(ctx, db, booking.ID)
		if err != nil {
			return domain.Totals{}, fmt.Errorf("%s: %w", agg.Name(), err)
		}
		rawSubtotal += res.Subtotal
		discount += res.DiscountAmount
		lines = append(lines, res.Lines...)
	}

	discount = pricing.MinInt64(pricing.MaxInt64(discount, 0), pricing.MaxInt64(rawSubtotal, 0))
	taxableBase := rawSubtotal - discount

	rate, err := e.rates.RateForZone(ctx, db, booking.ZoneID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("tax rate: %w", err)
	}
	tax := pricing.ComposeTax(e.pricing.Get().Policy(), rate.Rate, taxableBase, lines)

	return domain.Totals{
		Subtotal:       rawSubtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    taxableBase + tax,
	}, nil
}

func (e *Engine) fail(ctx context.Context, span trace.Span, bookingID snowflake.ID, err error) (domain.Totals, error) {
	e.metrics.RecordRecalculation(ctx, resultFailure)
	span.RecordError(tracing.SafeError(err))
	e.log.Warn("recalculation failed", zap.String("booking_id", bookingID.String()), zap.Error(err))
	return domain.Totals{}, err
}
