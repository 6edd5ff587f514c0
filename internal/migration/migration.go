package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/campstay/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/campstay/internal/payment/domain"
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, for dialects without SQL migrations.
func Models() []any {
	return []any{
		&bookingdomain.Booking{},
		&bookingdomain.BookingTent{},
		&bookingdomain.BookingParameter{},
		&bookingdomain.BookingItem{},
		&bookingdomain.BookingMenuProduct{},
		&voucherdomain.Voucher{},
		&paymentdomain.Payment{},
		&auditdomain.EditLog{},
		&taxdomain.ZoneTaxSetting{},
	}
}

// AutoMigrate creates the schema from the gorm models. Used for sqlite and mysql.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
