package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/campstay/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.EditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_edit_logs (
			id, booking_id, actor_id, action_kind, description, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.BookingID,
		entry.ActorID,
		entry.ActionKind,
		entry.Description,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.EditLog, error) {
	var logs []*domain.EditLog
	stmt := db.WithContext(ctx).Model(&domain.EditLog{}).
		Where("booking_id = ?", filter.BookingID)

	if kind := strings.TrimSpace(filter.ActionKind); kind != "" {
		stmt = stmt.Where("action_kind = ?", kind)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
