package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SumByStatus(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, statuses []string) (int64, error) {
	normalized := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if status = strings.ToLower(strings.TrimSpace(status)); status != "" {
			normalized = append(normalized, status)
		}
	}
	if len(normalized) == 0 {
		return 0, nil
	}

	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM booking_payments
		 WHERE booking_id = ? AND LOWER(status) IN ?`,
		bookingID,
		normalized,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) ListByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, amount, status, method, paid_at, created_at
		 FROM booking_payments
		 WHERE booking_id = ?
		 ORDER BY created_at ASC, id ASC`,
		bookingID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
