package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campstay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns a nil limiter when Redis or the edit rate is unset.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *EditLimiter {
	if cfg.RedisAddr == "" || cfg.EditRatePerSecond <= 0 || cfg.EditRateBurst <= 0 {
		log.Info("booking edit rate limit disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewEditLimiter(NewTokenBucket(client), cfg.EditRatePerSecond, cfg.EditRateBurst)
}
