package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/campstay/internal/pricing"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const TaxPolicyAuto = string(pricing.TaxPolicyAuto)

// PricingConfig is the hot-reloadable pricing section of pricing.yml.
type PricingConfig struct {
	Currency               string             `mapstructure:"currency"`
	DefaultTaxRate         float64            `mapstructure:"defaultTaxRate"`
	TaxPolicy              string             `mapstructure:"taxPolicy"`
	ZoneTaxRates           map[string]float64 `mapstructure:"zoneTaxRates"`
	SettledPaymentStatuses []string           `mapstructure:"settledPaymentStatuses"`
}

func DefaultPricingConfig(defaults PricingDefaults) PricingConfig {
	currency := strings.TrimSpace(defaults.Currency)
	if currency == "" {
		currency = "VND"
	}
	policy := strings.TrimSpace(defaults.TaxPolicy)
	if policy == "" {
		policy = TaxPolicyAuto
	}
	return PricingConfig{
		Currency:               currency,
		DefaultTaxRate:         defaults.DefaultTaxRate,
		TaxPolicy:              policy,
		ZoneTaxRates:           map[string]float64{},
		SettledPaymentStatuses: []string{"successful", "completed", "paid"},
	}
}

// Policy returns the parsed tax policy; validate guarantees it parses.
func (c PricingConfig) Policy() pricing.TaxPolicy {
	policy, err := pricing.ParseTaxPolicy(c.TaxPolicy)
	if err != nil {
		return pricing.TaxPolicyAuto
	}
	return policy
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder(appCfg Config, log *zap.Logger) (*PricingConfigHolder, error) {
	log = log.Named("config.pricing")
	v := viper.New()

	if appCfg.PricingFilePath != "" {
		v.SetConfigFile(appCfg.PricingFilePath)
	} else {
		v.SetConfigName("pricing")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/campstay")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CAMPSTAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig(appCfg.Pricing)
	v.SetDefault("pricing.currency", defaults.Currency)
	v.SetDefault("pricing.defaultTaxRate", defaults.DefaultTaxRate)
	v.SetDefault("pricing.taxPolicy", defaults.TaxPolicy)
	v.SetDefault("pricing.settledPaymentStatuses", defaults.SettledPaymentStatuses)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read pricing config: %w", err)
		}
		watch = false
		log.Info("pricing config file not found, using defaults")
	}

	cfg, err := decodePricing(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePricing(v)
		if err != nil {
			log.Warn("pricing config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("pricing config reloaded",
			zap.String("file", e.Name),
			zap.String("tax_policy", updated.TaxPolicy),
		)
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func decodePricing(v *viper.Viper) (PricingConfig, error) {
	cfg := PricingConfig{
		Currency:               strings.ToUpper(strings.TrimSpace(v.GetString("pricing.currency"))),
		DefaultTaxRate:         v.GetFloat64("pricing.defaultTaxRate"),
		TaxPolicy:              strings.ToLower(strings.TrimSpace(v.GetString("pricing.taxPolicy"))),
		SettledPaymentStatuses: v.GetStringSlice("pricing.settledPaymentStatuses"),
		ZoneTaxRates:           map[string]float64{},
	}
	if v.IsSet("pricing.zoneTaxRates") {
		if err := v.UnmarshalKey("pricing.zoneTaxRates", &cfg.ZoneTaxRates); err != nil {
			return PricingConfig{}, fmt.Errorf("decode pricing.zoneTaxRates: %w", err)
		}
	}
	if err := validatePricingConfig(cfg); err != nil {
		return PricingConfig{}, err
	}
	return cfg, nil
}

func validatePricingConfig(cfg PricingConfig) error {
	if _, err := pricing.ParseTaxPolicy(cfg.TaxPolicy); err != nil {
		return err
	}
	if cfg.DefaultTaxRate < 0 || cfg.DefaultTaxRate > 1 {
		return fmt.Errorf("pricing.defaultTaxRate must be within [0, 1], got %v", cfg.DefaultTaxRate)
	}
	for zone, rate := range cfg.ZoneTaxRates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("pricing.zoneTaxRates[%s] must be within [0, 1], got %v", zone, rate)
		}
	}
	if len(cfg.SettledPaymentStatuses) == 0 {
		return errors.New("pricing.settledPaymentStatuses cannot be empty")
	}
	return nil
}
