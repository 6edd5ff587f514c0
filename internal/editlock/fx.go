package editlock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campstay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("editlock",
	fx.Provide(NewLocker),
)

// NewLocker uses Redis when REDIS_ADDR is set; without it edits are only
// serialized by the booking version claim.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Locker, error) {
	if cfg.RedisAddr == "" {
		return NewNoopLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client, cfg.BookingLockTTL, log), nil
}
