package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads and writes the booking subtree. Every method takes the
// handle to run on so callers can keep a mutation in one transaction.
type Repository interface {
	FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	// ClaimVersion bumps bookings.version, optionally only from expected.
	ClaimVersion(ctx context.Context, db *gorm.DB, id snowflake.ID, expected *int64, now time.Time) (int64, error)
	UpdateTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, totals Totals, now time.Time) error
	UpdateDepositDue(ctx context.Context, db *gorm.DB, id snowflake.ID, depositDue int64, ratio float64) error

	ListTents(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]BookingTent, error)
	FindTent(ctx context.Context, db *gorm.DB, bookingID, tentID snowflake.ID) (*BookingTent, error)
	InsertTent(ctx context.Context, db *gorm.DB, tent *BookingTent) error
	UpdateTent(ctx context.Context, db *gorm.DB, tent *BookingTent) error
	// DeleteTent removes the tent with its parameters, items and menu products.
	DeleteTent(ctx context.Context, db *gorm.DB, bookingID, tentID snowflake.ID) error

	ListParameters(ctx context.Context, db *gorm.DB, tentID snowflake.ID) ([]BookingParameter, error)
	// ReplaceTentParameters deletes the tent's parameter rows and parameter-priced items, then inserts the new set.
	ReplaceTentParameters(ctx context.Context, db *gorm.DB, tentID snowflake.ID, params []BookingParameter, items []BookingItem) error

	ListItems(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]BookingItem, error)
	FindItem(ctx context.Context, db *gorm.DB, bookingID, itemID snowflake.ID) (*BookingItem, error)
	InsertItem(ctx context.Context, db *gorm.DB, item *BookingItem) error
	UpdateItem(ctx context.Context, db *gorm.DB, item *BookingItem) error
	DeleteItem(ctx context.Context, db *gorm.DB, bookingID, itemID snowflake.ID) error

	ListMenuProducts(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]BookingMenuProduct, error)
	FindMenuProduct(ctx context.Context, db *gorm.DB, bookingID, productID snowflake.ID) (*BookingMenuProduct, error)
	InsertMenuProduct(ctx context.Context, db *gorm.DB, product *BookingMenuProduct) error
	UpdateMenuProduct(ctx context.Context, db *gorm.DB, product *BookingMenuProduct) error
	DeleteMenuProduct(ctx context.Context, db *gorm.DB, bookingID, productID snowflake.ID) error
}
