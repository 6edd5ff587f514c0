package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// RateProvider resolves the tax rate for a zone. db is the caller's
// handle so lookups join an open transaction.
type RateProvider interface {
	RateForZone(ctx context.Context, db *gorm.DB, zoneID snowflake.ID) (Rate, error)
}

type Service interface {
	RateProvider
	UpsertZoneRate(ctx context.Context, zoneID snowflake.ID, rate float64, enabled bool) (*ZoneTaxSetting, error)
}
