package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActionKind string

const (
	ActionItemAdd    ActionKind = "item_add"
	ActionItemEdit   ActionKind = "item_edit"
	ActionItemDelete ActionKind = "item_delete"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionItemAdd, ActionItemEdit, ActionItemDelete:
		return true
	default:
		return false
	}
}

// EditLog is an append-only record of one admin change to a booking.
type EditLog struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	BookingID   snowflake.ID      `json:"booking_id" gorm:"column:booking_id;not null;index"`
	ActorID     string            `json:"actor_id" gorm:"column:actor_id;type:varchar(64);not null"`
	ActionKind  ActionKind        `json:"action_kind" gorm:"column:action_kind;type:varchar(32);not null"`
	Description string            `json:"description" gorm:"type:text;not null"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;index"`
}

func (EditLog) TableName() string { return "booking_edit_logs" }
