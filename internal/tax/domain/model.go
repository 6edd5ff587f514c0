package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ZoneTaxSetting overrides the configured tax rate for one glamping zone.
// Rate is a fraction (0.08 = 8%).
type ZoneTaxSetting struct {
	ID     snowflake.ID `json:"id" gorm:"primaryKey"`
	ZoneID snowflake.ID `json:"zone_id" gorm:"column:zone_id;not null;uniqueIndex"`
	Rate   float64      `json:"rate" gorm:"type:numeric(6,4);not null"`

	IsEnabled bool `json:"is_enabled" gorm:"column:is_enabled;not null;default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (ZoneTaxSetting) TableName() string { return "zone_tax_settings" }

const (
	SourceZoneSetting = "zone_setting"
	SourceZoneConfig  = "zone_config"
	SourceDefault     = "default"
	SourceDisabled    = "disabled"
)

// Rate is the tax rate resolved for a booking, with where it came from.
type Rate struct {
	Rate   float64 `json:"rate"`
	Source string  `json:"source"`
}
