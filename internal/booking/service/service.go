package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/booking/recalc"
	"github.com/smallbiznis/campstay/internal/clock"
	"github.com/smallbiznis/campstay/internal/editlock"
	"github.com/smallbiznis/campstay/internal/events"
	obscontext "github.com/smallbiznis/campstay/internal/observability/context"
	"github.com/smallbiznis/campstay/internal/observability/logger"
	"github.com/smallbiznis/campstay/internal/observability/metrics"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Engine    *recalc.Engine
	Vouchers  voucherdomain.Service
	Audit     auditdomain.Service
	Clock     clock.Clock              `optional:"true"`
	Publisher events.Publisher         `optional:"true"`
	Locker    editlock.Locker          `optional:"true"`
	Metrics   *metrics.Metrics         `optional:"true"`
	Mutations *metrics.MutationMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	engine    *recalc.Engine
	vouchers  voucherdomain.Service
	audit     auditdomain.Service
	clock     clock.Clock
	publisher events.Publisher
	locker    editlock.Locker
	metrics   *metrics.Metrics
	mutations *metrics.MutationMetrics
}

func NewService(p Params) domain.Service {
	svc := &Service{
		db:        p.DB,
		log:       p.Log.Named("booking.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		engine:    p.Engine,
		vouchers:  p.Vouchers,
		audit:     p.Audit,
		clock:     p.Clock,
		publisher: p.Publisher,
		locker:    p.Locker,
		metrics:   p.Metrics,
		mutations: p.Mutations,
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}
	if svc.publisher == nil {
		svc.publisher = events.NewNoopPublisher()
	}
	if svc.locker == nil {
		svc.locker = editlock.NewNoopLocker()
	}
	return svc
}

// mutation is one admin edit. apply changes child rows on tx and returns
// the affected row id with a human-readable audit description.
type mutation struct {
	op    string
	kind  auditdomain.ActionKind
	meta  domain.MutationMeta
	apply func(ctx context.Context, tx *gorm.DB, booking *domain.Booking) (snowflake.ID, string, error)
}

func (s *Service) run(ctx context.Context, m mutation) (*domain.MutationResult, error) {
	start := time.Now()
	result, err := s.execute(ctx, m)
	s.mutations.ObserveMutation(m.op, time.Since(start), err, failureReason(err))

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConcurrentModification):
			s.metrics.RecordBookingConflict(ctx, "version_mismatch")
		case errors.Is(err, domain.ErrBookingLocked):
			s.metrics.RecordBookingConflict(ctx, "locked")
		}
	}
	return result, err
}

func (s *Service) execute(ctx context.Context, m mutation) (*domain.MutationResult, error) {
	bookingID := m.meta.BookingID
	if bookingID == 0 {
		return nil, domain.ErrBookingNotFound
	}
	actorID := strings.TrimSpace(m.meta.ActorID)
	if actorID == "" {
		return nil, domain.ErrInvalidActor
	}
	ctx = obscontext.WithActorID(ctx, actorID)
	log := logger.WithBooking(logger.WithContext(ctx, s.log), bookingID.String())

	release, err := s.locker.Acquire(ctx, bookingID)
	if err != nil {
		if errors.Is(err, editlock.ErrLocked) {
			return nil, domain.ErrBookingLocked
		}
		return nil, err
	}
	defer release()

	var result domain.MutationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the claim takes the row lock, so the booking read below sees the
		// committed predecessor
		version, err := s.repo.ClaimVersion(ctx, tx, bookingID, m.meta.ExpectedVersion, s.clock.Now())
		if err != nil {
			return err
		}
		booking, err := s.repo.FindBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		if booking.Status == domain.BookingStatusCancelled {
			return domain.ErrBookingCancelled
		}
		ratio := recalc.AgreedDepositRatio(booking)

		affectedID, description, err := m.apply(ctx, tx, booking)
		if err != nil {
			return err
		}

		totals, err := s.engine.Recalculate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		depositDue := recalc.ApplyDepositRatio(totals.TotalAmount, ratio)
		if err := s.repo.UpdateDepositDue(ctx, tx, bookingID, depositDue, ratio); err != nil {
			return err
		}

		if err := s.audit.Log(ctx, tx, bookingID, actorID, m.kind, description); err != nil {
			return err
		}

		result = domain.MutationResult{
			BookingID:  bookingID,
			AffectedID: affectedID,
			Version:    version,
			Totals:     totals,
			DepositDue: depositDue,
		}
		return nil
	})
	if err != nil {
		log.Info("booking mutation rejected", zap.String("operation", m.op), zap.Error(err))
		return nil, err
	}

	event := events.NewTotalsChanged(bookingID, result.Version, m.op, actorID, result.Totals, result.DepositDue, s.clock.Now())
	if err := s.publisher.PublishTotalsChanged(ctx, event); err != nil {
		log.Warn("failed to publish totals changed", zap.String("message_id", event.MessageID), zap.Error(err))
	}

	log.Info("booking mutated",
		zap.String("operation", m.op),
		zap.String("affected_id", result.AffectedID.String()),
		zap.Int64("version", result.Version),
		zap.Int64("total_amount", result.Totals.TotalAmount),
	)
	return &result, nil
}

// applyVoucher decides what voucher a line carries after an edit. A new
// code is validated and consumes one use; the same code keeps its
// snapshot with the amount recomputed against base; an empty code clears it.
func (s *Service) applyVoucher(ctx context.Context, tx *gorm.DB, previous *domain.VoucherSnapshot, code string, vctx voucherdomain.ValidationContext) (*domain.VoucherSnapshot, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}

	if previous != nil && strings.EqualFold(previous.Code, code) {
		snap := *previous
		snap.DiscountAmount = voucherdomain.ComputeDiscount(
			voucherdomain.DiscountType(snap.DiscountType),
			snap.DiscountValue,
			snap.MaxDiscountAmount,
			vctx.TotalAmount,
		)
		return &snap, nil
	}

	res, err := s.vouchers.Apply(ctx, tx, code, vctx)
	if err != nil {
		return nil, err
	}
	return &domain.VoucherSnapshot{
		ID:                res.VoucherID,
		Code:              res.Code,
		DiscountType:      string(res.DiscountType),
		DiscountValue:     res.DiscountValue,
		DiscountAmount:    res.DiscountAmount,
		MaxDiscountAmount: res.MaxDiscountAmount,
		ApplicationMethod: string(res.ApplicationMethod),
	}, nil
}

func (s *Service) validationContext(booking *domain.Booking, itemID, categoryID snowflake.ID, total int64, applicationType voucherdomain.ApplicationType) voucherdomain.ValidationContext {
	return voucherdomain.ValidationContext{
		ZoneID:          booking.ZoneID,
		ItemID:          itemID,
		CategoryID:      categoryID,
		CheckIn:         booking.CheckInDate,
		TotalAmount:     total,
		ApplicationType: applicationType,
	}
}

func (s *Service) ensureTent(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, tentID *snowflake.ID) error {
	if tentID == nil || *tentID == 0 {
		return nil
	}
	tent, err := s.repo.FindTent(ctx, tx, bookingID, *tentID)
	if err != nil {
		return err
	}
	if tent == nil {
		return domain.ErrTentNotFound
	}
	return nil
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	if reason := voucherdomain.RejectionReason(err); reason != "" {
		return reason
	}
	for _, known := range []error{
		domain.ErrConcurrentModification,
		domain.ErrBookingLocked,
		domain.ErrBookingCancelled,
		domain.ErrInvariantViolation,
		domain.ErrRecalculationFailed,
		domain.ErrEntityNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ""
}

func nullableID(id *snowflake.ID) *snowflake.ID {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}
