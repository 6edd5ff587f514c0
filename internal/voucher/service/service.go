package service

import (
	"context"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/clock"
	"github.com/smallbiznis/campstay/internal/observability/metrics"
	"github.com/smallbiznis/campstay/internal/voucher/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock `optional:"true"`
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("voucher.service"),
		clock:   clk,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Validate(ctx context.Context, code string, vctx domain.ValidationContext) (*domain.Result, error) {
	return s.ValidateTx(ctx, s.db, code, vctx)
}

func (s *Service) ValidateTx(ctx context.Context, tx *gorm.DB, code string, vctx domain.ValidationContext) (*domain.Result, error) {
	_, result, err := s.validate(ctx, tx, code, vctx)
	if err != nil {
		s.reject(ctx, code, err)
		return nil, err
	}
	return result, nil
}

func (s *Service) Apply(ctx context.Context, tx *gorm.DB, code string, vctx domain.ValidationContext) (*domain.Result, error) {
	voucher, result, err := s.validate(ctx, tx, code, vctx)
	if err != nil {
		s.reject(ctx, code, err)
		return nil, err
	}

	ok, err := s.repo.IncrementUsage(ctx, tx, voucher.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.reject(ctx, code, domain.ErrVoucherUsageExceeded)
		return nil, domain.ErrVoucherUsageExceeded
	}

	s.metrics.RecordVoucherApplication(ctx, string(vctx.ApplicationType))
	s.log.Debug("voucher applied",
		zap.String("code", result.Code),
		zap.String("voucher_id", voucher.ID.String()),
		zap.Int64("discount_amount", result.DiscountAmount),
	)
	return result, nil
}

func (s *Service) validate(ctx context.Context, db *gorm.DB, code string, vctx domain.ValidationContext) (*domain.Voucher, *domain.Result, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil, domain.ErrInvalidVoucherCode
	}

	voucher, err := s.repo.FindByCode(ctx, db, code)
	if err != nil {
		return nil, nil, err
	}
	if voucher == nil {
		return nil, nil, domain.ErrVoucherNotFound
	}
	if !voucher.IsActive {
		return nil, nil, domain.ErrVoucherInactive
	}

	now := s.clock.Now()
	if voucher.ValidFrom != nil && now.Before(*voucher.ValidFrom) {
		return nil, nil, domain.ErrVoucherNotYetActive
	}
	if voucher.ValidUntil != nil && now.After(*voucher.ValidUntil) {
		return nil, nil, domain.ErrVoucherExpired
	}

	scope, err := voucher.Scope()
	if err != nil {
		return nil, nil, err
	}
	if !matchesScope(voucher.ApplicationType, scope, vctx) {
		return nil, nil, domain.ErrVoucherScopeMismatch
	}

	if voucher.MaxUses != nil && voucher.CurrentUses >= *voucher.MaxUses {
		return nil, nil, domain.ErrVoucherUsageExceeded
	}

	return voucher, &domain.Result{
		VoucherID:         voucher.ID,
		Code:              voucher.Code,
		DiscountType:      voucher.DiscountType,
		DiscountValue:     voucher.DiscountValue,
		DiscountAmount:    domain.ComputeDiscount(voucher.DiscountType, voucher.DiscountValue, voucher.MaxDiscountAmount, vctx.TotalAmount),
		MaxDiscountAmount: voucher.MaxDiscountAmount,
		ApplicationMethod: voucher.ApplicationMethod,
	}, nil
}

func (s *Service) reject(ctx context.Context, code string, err error) {
	reason := domain.RejectionReason(err)
	if reason == "" {
		return
	}
	s.metrics.RecordVoucherRejection(ctx, reason)
	s.log.Info("voucher rejected", zap.String("code", code), zap.String("reason", reason))
}

func matchesScope(applicationType domain.ApplicationType, scope domain.Scope, vctx domain.ValidationContext) bool {
	if applicationType != "" && applicationType != domain.ApplyAll && applicationType != vctx.ApplicationType {
		return false
	}
	if len(scope.ZoneIDs) > 0 && !slices.Contains(scope.ZoneIDs, vctx.ZoneID) {
		return false
	}
	if len(scope.ItemIDs) == 0 && len(scope.CategoryIDs) == 0 {
		return true
	}
	return containsID(scope.ItemIDs, vctx.ItemID) || containsID(scope.CategoryIDs, vctx.CategoryID)
}

func containsID(ids []snowflake.ID, id snowflake.ID) bool {
	return id != 0 && slices.Contains(ids, id)
}
