package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditLimiter_DisabledAllows(t *testing.T) {
	var limiter *EditLimiter
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowActor(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	assert.Nil(t, NewEditLimiter(nil, 1, 5))
	assert.Nil(t, NewEditLimiter(&TokenBucket{}, 0, 5))
	assert.Nil(t, NewEditLimiter(&TokenBucket{}, 1, 0))
}

func TestTokenBucket_RejectsBadArguments(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryAfter(true, 0, 2))
	assert.Equal(t, 500*time.Millisecond, retryAfter(false, 0, 2))
	assert.Equal(t, 250*time.Millisecond, retryAfter(false, 0.5, 2))
	assert.Equal(t, time.Duration(0), retryAfter(false, 0, 0))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(3), castToInt("3"))
	assert.Equal(t, int64(0), castToInt(nil))
	assert.InDelta(t, 0.75, castToFloat("0.75"), 1e-9)
	assert.InDelta(t, 2.0, castToFloat(int64(2)), 1e-9)
	assert.Zero(t, castToFloat(struct{}{}))
}
