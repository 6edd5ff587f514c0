package repository

import (
	"context"

	"github.com/smallbiznis/campstay/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm store for small settings tables that do not
// need hand-written SQL.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	// FindOne returns nil, nil when no row matches.
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id any, fields map[string]any) error
}
