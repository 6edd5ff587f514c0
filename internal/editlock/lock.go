// Package editlock holds a short advisory lock per booking so two admins
// editing the same booking fail fast instead of queueing on the row lock.
package editlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrLocked = errors.New("booking_locked")

type Locker interface {
	// Acquire returns ErrLocked when another editor holds the booking.
	Acquire(ctx context.Context, bookingID snowflake.ID) (release func(), err error)
}

type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
		log:    log.Named("editlock"),
	}
}

func Key(bookingID snowflake.ID) string {
	return fmt.Sprintf("campstay:booking:%s:edit", bookingID.String())
}

func (l *RedisLocker) Acquire(ctx context.Context, bookingID snowflake.ID) (func(), error) {
	key := Key(bookingID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// release must outlive a cancelled request context
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.script.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("failed to release booking edit lock", zap.String("booking_id", bookingID.String()), zap.Error(err))
		}
	}, nil
}

type noopLocker struct{}

func NewNoopLocker() Locker { return noopLocker{} }

func (noopLocker) Acquire(context.Context, snowflake.ID) (func(), error) {
	return func() {}, nil
}
