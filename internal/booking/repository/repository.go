package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const bookingColumns = `id, zone_id, status, payment_status, check_in_date, check_out_date, currency,
	subtotal_amount, discount_amount, tax_amount, total_amount, deposit_due, deposit_ratio,
	version, created_at, updated_at`

const voucherColumns = `voucher_id, voucher_code, discount_type, discount_value,
	discount_max_amount, discount_application, discount_amount`

func (r *repo) FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var items []domain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) ClaimVersion(ctx context.Context, db *gorm.DB, id snowflake.ID, expected *int64, now time.Time) (int64, error) {
	query := `UPDATE bookings SET version = version + 1, updated_at = ? WHERE id = ?`
	args := []any{now, id}
	if expected != nil {
		query += ` AND version = ?`
		args = append(args, *expected)
	}

	res := db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.FindBooking(ctx, db, id)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, domain.ErrBookingNotFound
		}
		return 0, domain.ErrConcurrentModification
	}

	var version int64
	if err := db.WithContext(ctx).Raw(`SELECT version FROM bookings WHERE id = ?`, id).Scan(&version).Error; err != nil {
		return 0, err
	}
	return version, nil
}

// UpdateTotals runs after ClaimVersion, which has already locked the row, so
// the affected row count is not checked.
func (r *repo) UpdateTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, totals domain.Totals, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET subtotal_amount = ?, discount_amount = ?, tax_amount = ?, total_amount = ?, updated_at = ?
		 WHERE id = ?`,
		totals.Subtotal,
		totals.DiscountAmount,
		totals.TaxAmount,
		totals.TotalAmount,
		now,
		id,
	).Error
}

func (r *repo) UpdateDepositDue(ctx context.Context, db *gorm.DB, id snowflake.ID, depositDue int64, ratio float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings SET deposit_due = ?, deposit_ratio = ? WHERE id = ?`,
		depositDue,
		ratio,
		id,
	).Error
}

func (r *repo) ListTents(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.BookingTent, error) {
	var items []domain.BookingTent
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, item_id, check_in_date, check_out_date, nights,
			subtotal, subtotal_override, `+voucherColumns+`, created_at, updated_at
		 FROM booking_tents
		 WHERE booking_id = ?
		 ORDER BY id ASC`,
		bookingID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindTent(ctx context.Context, db *gorm.DB, bookingID, tentID snowflake.ID) (*domain.BookingTent, error) {
	var items []domain.BookingTent
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, item_id, check_in_date, check_out_date, nights,
			subtotal, subtotal_override, `+voucherColumns+`, created_at, updated_at
		 FROM booking_tents
		 WHERE booking_id = ? AND id = ?
		 LIMIT 1`,
		bookingID,
		tentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) InsertTent(ctx context.Context, db *gorm.DB, tent *domain.BookingTent) error {
	return db.WithContext(ctx).Create(tent).Error
}

func (r *repo) UpdateTent(ctx context.Context, db *gorm.DB, tent *domain.BookingTent) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_tents
		 SET item_id = ?, check_in_date = ?, check_out_date = ?, nights = ?,
			subtotal = ?, subtotal_override = ?,
			voucher_id = ?, voucher_code = ?, discount_type = ?, discount_value = ?,
			discount_max_amount = ?, discount_application = ?, discount_amount = ?,
			updated_at = ?
		 WHERE booking_id = ? AND id = ?`,
		tent.ItemID,
		tent.CheckInDate,
		tent.CheckOutDate,
		tent.Nights,
		tent.Subtotal,
		tent.SubtotalOverride,
		tent.VoucherID,
		tent.VoucherCode,
		tent.DiscountType,
		tent.DiscountValue,
		tent.DiscountMaxAmount,
		tent.DiscountApplication,
		tent.DiscountAmount,
		tent.UpdatedAt,
		tent.BookingID,
		tent.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTentNotFound
	}
	return nil
}

func (r *repo) DeleteTent(ctx context.Context, db *gorm.DB, bookingID, tentID snowflake.ID) error {
	for _, stmt := range []string{
		`DELETE FROM booking_parameters WHERE booking_id = ? AND booking_tent_id = ?`,
		`DELETE FROM booking_items WHERE booking_id = ? AND booking_tent_id = ?`,
		`DELETE FROM booking_menu_products WHERE booking_id = ? AND booking_tent_id = ?`,
	} {
		if err := db.WithContext(ctx).Exec(stmt, bookingID, tentID).Error; err != nil {
			return err
		}
	}

	res := db.WithContext(ctx).Exec(`DELETE FROM booking_tents WHERE booking_id = ? AND id = ?`, bookingID, tentID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTentNotFound
	}
	return nil
}

func (r *repo) ListParameters(ctx context.Context, db *gorm.DB, tentID snowflake.ID) ([]domain.BookingParameter, error) {
	var items []domain.BookingParameter
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, booking_tent_id, parameter_id, label, booked_quantity,
			controls_inventory, created_at
		 FROM booking_parameters
		 WHERE booking_tent_id = ?
		 ORDER BY id ASC`,
		tentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReplaceTentParameters(ctx context.Context, db *gorm.DB, tentID snowflake.ID, params []domain.BookingParameter, items []domain.BookingItem) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM booking_parameters WHERE booking_tent_id = ?`, tentID,
	).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM booking_items WHERE booking_tent_id = ? AND addon_item_id IS NULL`, tentID,
	).Error; err != nil {
		return err
	}

	for i := range params {
		if err := db.WithContext(ctx).Create(&params[i]).Error; err != nil {
			return err
		}
	}
	for i := range items {
		if err := r.InsertItem(ctx, db, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

const itemColumns = `id, booking_id, booking_tent_id, item_id, addon_item_id, parameter_id,
	quantity, unit_price, total_price, metadata, created_at, updated_at`

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.BookingItem, error) {
	var items []domain.BookingItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+`
		 FROM booking_items
		 WHERE booking_id = ?
		 ORDER BY id ASC`,
		bookingID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, bookingID, itemID snowflake.ID) (*domain.BookingItem, error) {
	var items []domain.BookingItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+`
		 FROM booking_items
		 WHERE booking_id = ? AND id = ?
		 LIMIT 1`,
		bookingID,
		itemID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.BookingItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_items (
			id, booking_id, booking_tent_id, item_id, addon_item_id, parameter_id,
			quantity, unit_price, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.BookingID,
		item.BookingTentID,
		item.ItemID,
		item.AddonItemID,
		item.ParameterID,
		item.Quantity,
		item.UnitPrice,
		item.Metadata,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *domain.BookingItem) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_items
		 SET booking_tent_id = ?, item_id = ?, addon_item_id = ?, parameter_id = ?,
			quantity = ?, unit_price = ?, metadata = ?, updated_at = ?
		 WHERE booking_id = ? AND id = ?`,
		item.BookingTentID,
		item.ItemID,
		item.AddonItemID,
		item.ParameterID,
		item.Quantity,
		item.UnitPrice,
		item.Metadata,
		item.UpdatedAt,
		item.BookingID,
		item.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, bookingID, itemID snowflake.ID) error {
	res := db.WithContext(ctx).Exec(`DELETE FROM booking_items WHERE booking_id = ? AND id = ?`, bookingID, itemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

const menuColumns = `id, booking_id, booking_tent_id, menu_item_id, quantity, unit_price,
	total_price, serving_date, ` + voucherColumns + `, created_at, updated_at`

func (r *repo) ListMenuProducts(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.BookingMenuProduct, error) {
	var items []domain.BookingMenuProduct
	err := db.WithContext(ctx).Raw(
		`SELECT `+menuColumns+`
		 FROM booking_menu_products
		 WHERE booking_id = ?
		 ORDER BY id ASC`,
		bookingID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindMenuProduct(ctx context.Context, db *gorm.DB, bookingID, productID snowflake.ID) (*domain.BookingMenuProduct, error) {
	var items []domain.BookingMenuProduct
	err := db.WithContext(ctx).Raw(
		`SELECT `+menuColumns+`
		 FROM booking_menu_products
		 WHERE booking_id = ? AND id = ?
		 LIMIT 1`,
		bookingID,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) InsertMenuProduct(ctx context.Context, db *gorm.DB, product *domain.BookingMenuProduct) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) UpdateMenuProduct(ctx context.Context, db *gorm.DB, product *domain.BookingMenuProduct) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_menu_products
		 SET booking_tent_id = ?, menu_item_id = ?, quantity = ?, unit_price = ?, total_price = ?,
			serving_date = ?,
			voucher_id = ?, voucher_code = ?, discount_type = ?, discount_value = ?,
			discount_max_amount = ?, discount_application = ?, discount_amount = ?,
			updated_at = ?
		 WHERE booking_id = ? AND id = ?`,
		product.BookingTentID,
		product.MenuItemID,
		product.Quantity,
		product.UnitPrice,
		product.TotalPrice,
		product.ServingDate,
		product.VoucherID,
		product.VoucherCode,
		product.DiscountType,
		product.DiscountValue,
		product.DiscountMaxAmount,
		product.DiscountApplication,
		product.DiscountAmount,
		product.UpdatedAt,
		product.BookingID,
		product.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMenuProductNotFound
	}
	return nil
}

func (r *repo) DeleteMenuProduct(ctx context.Context, db *gorm.DB, bookingID, productID snowflake.ID) error {
	res := db.WithContext(ctx).Exec(`DELETE FROM booking_menu_products WHERE booking_id = ? AND id = ?`, bookingID, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMenuProductNotFound
	}
	return nil
}
