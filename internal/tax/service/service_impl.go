package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/cache"
	"github.com/smallbiznis/campstay/internal/clock"
	"github.com/smallbiznis/campstay/internal/config"
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	"github.com/smallbiznis/campstay/pkg/db/option"
	"github.com/smallbiznis/campstay/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const rateCacheTTL = time.Minute

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock `optional:"true"`
	Pricing *config.PricingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	pricing *config.PricingConfigHolder

	settings repository.Repository[taxdomain.ZoneTaxSetting]
	cache    cache.Cache[snowflake.ID, *taxdomain.ZoneTaxSetting]
}

func NewService(p Params) taxdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tax.service"),
		genID:    p.GenID,
		clock:    clk,
		pricing:  p.Pricing,
		settings: repository.ProvideStore[taxdomain.ZoneTaxSetting](p.DB),
		cache:    cache.NewTTLCache[snowflake.ID, *taxdomain.ZoneTaxSetting](),
	}
}

// RateForZone prefers the zone's stored setting, then the zone rate from
// pricing config, then the configured default.
func (s *Service) RateForZone(ctx context.Context, db *gorm.DB, zoneID snowflake.ID) (taxdomain.Rate, error) {
	cfg := s.pricing.Get()
	if zoneID == 0 {
		return taxdomain.Rate{Rate: cfg.DefaultTaxRate, Source: taxdomain.SourceDefault}, nil
	}

	setting, err := s.zoneSetting(ctx, db, zoneID)
	if err != nil {
		return taxdomain.Rate{}, err
	}
	if setting != nil {
		if !setting.IsEnabled {
			return taxdomain.Rate{Rate: 0, Source: taxdomain.SourceDisabled}, nil
		}
		return taxdomain.Rate{Rate: setting.Rate, Source: taxdomain.SourceZoneSetting}, nil
	}

	if rate, ok := cfg.ZoneTaxRates[zoneID.String()]; ok {
		return taxdomain.Rate{Rate: rate, Source: taxdomain.SourceZoneConfig}, nil
	}
	return taxdomain.Rate{Rate: cfg.DefaultTaxRate, Source: taxdomain.SourceDefault}, nil
}

func (s *Service) zoneSetting(ctx context.Context, db *gorm.DB, zoneID snowflake.ID) (*taxdomain.ZoneTaxSetting, error) {
	if cached, ok := s.cache.Get(zoneID); ok {
		return cached, nil
	}
	if db == nil {
		db = s.db
	}

	setting, err := s.settings.WithTrx(db).FindOne(ctx, &taxdomain.ZoneTaxSetting{ZoneID: zoneID}, option.WithOrder("updated_at DESC"))
	if err != nil {
		return nil, err
	}
	// misses are cached too so zones without a row skip the query
	s.cache.Set(zoneID, setting, rateCacheTTL)
	return setting, nil
}

func (s *Service) UpsertZoneRate(ctx context.Context, zoneID snowflake.ID, rate float64, enabled bool) (*taxdomain.ZoneTaxSetting, error) {
	if zoneID == 0 {
		return nil, taxdomain.ErrInvalidZone
	}
	if rate < 0 || rate > 1 {
		return nil, taxdomain.ErrInvalidTaxRate
	}

	now := s.clock.Now()
	existing, err := s.settings.FindOne(ctx, &taxdomain.ZoneTaxSetting{ZoneID: zoneID}, option.WithOrder("updated_at DESC"))
	if err != nil {
		return nil, err
	}

	if existing == nil {
		setting := &taxdomain.ZoneTaxSetting{
			ID:        s.genID.Generate(),
			ZoneID:    zoneID,
			Rate:      rate,
			IsEnabled: enabled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.settings.Create(ctx, setting); err != nil {
			return nil, err
		}
		if !enabled {
			if err := s.settings.Update(ctx, setting.ID, map[string]any{"is_enabled": false}); err != nil {
				return nil, err
			}
		}
		s.cache.Delete(zoneID)
		return setting, nil
	}

	err = s.settings.Update(ctx, existing.ID, map[string]any{
		"rate":       rate,
		"is_enabled": enabled,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Delete(zoneID)

	existing.Rate = rate
	existing.IsEnabled = enabled
	existing.UpdatedAt = now
	s.log.Info("zone tax rate updated", zap.String("zone_id", zoneID.String()), zap.Float64("rate", rate))
	return existing, nil
}
