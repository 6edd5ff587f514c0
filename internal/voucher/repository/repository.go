package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/internal/voucher/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Voucher, error) {
	var vouchers []domain.Voucher
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, discount_type, discount_value, max_discount_amount,
			application_type, application_method, zone_ids, item_ids, category_ids,
			valid_from, valid_until, max_uses, current_uses, is_active, created_at, updated_at
		FROM glamping_discounts
		WHERE UPPER(code) = UPPER(?)
		LIMIT 1`,
		code,
	).Scan(&vouchers).Error
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return nil, nil
	}
	return &vouchers[0], nil
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE glamping_discounts
		SET current_uses = current_uses + 1
		WHERE id = ? AND (max_uses IS NULL OR current_uses < max_uses)`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
