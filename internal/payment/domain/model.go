package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Payment is one recorded payment against a booking. Payments are written
// by the payments subsystem; this module only reads them.
type Payment struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID snowflake.ID `json:"booking_id" gorm:"column:booking_id;not null;index"`
	Amount    int64        `json:"amount" gorm:"not null"`
	Status    string       `json:"status" gorm:"type:varchar(32);not null"`
	Method    string       `json:"method" gorm:"type:varchar(32);not null;default:'cash'"`
	PaidAt    *time.Time   `json:"paid_at"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "booking_payments" }

type Repository interface {
	// SumByStatus adds up amounts whose status is in statuses (case-insensitive).
	SumByStatus(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, statuses []string) (int64, error)
	ListByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]Payment, error)
}

type Service interface {
	SumSettled(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error)
	ListPayments(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]Payment, error)
}
