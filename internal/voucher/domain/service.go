package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Voucher, error)
	// IncrementUsage bumps current_uses atomically; false means max_uses was already reached.
	IncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

type Service interface {
	// Validate never mutates the voucher.
	Validate(ctx context.Context, code string, vctx ValidationContext) (*Result, error)
	ValidateTx(ctx context.Context, tx *gorm.DB, code string, vctx ValidationContext) (*Result, error)
	// Apply validates and records one usage inside tx. Call it only when a code is newly attached.
	Apply(ctx context.Context, tx *gorm.DB, code string, vctx ValidationContext) (*Result, error)
}
