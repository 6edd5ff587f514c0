// Package ratelimit throttles booking edits per admin so a stuck client
// cannot burn through booking versions and voucher checks.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const keyBookingEditActor = "booking:edit:actor:%s"

var ErrRateLimited = errors.New("rate_limited")

// EditLimiter is nil-safe; a nil limiter allows everything.
type EditLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewEditLimiter(bucket *TokenBucket, rate float64, burst int) *EditLimiter {
	if bucket == nil || rate <= 0 || burst <= 0 {
		return nil
	}
	return &EditLimiter{bucket: bucket, rate: rate, burst: burst}
}

func (l *EditLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowActor takes one token from the actor's bucket.
func (l *EditLimiter) AllowActor(ctx context.Context, actorID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyBookingEditActor, actorID), l.rate, l.burst)
}
