package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/campstay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListEditLogRequest struct {
	pagination.Pagination
	BookingID  snowflake.ID
	ActionKind string
}

type ListEditLogResponse struct {
	pagination.PageInfo
	EditLogs []EditLog `json:"edit_logs"`
}

type ListFilter struct {
	BookingID  snowflake.ID
	ActionKind string
	Cursor     *EditLogCursor
	Limit      int
}

type EditLogCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *EditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*EditLog, error)
}

type Service interface {
	// Log appends an entry inside tx; a failure must abort the caller's transaction.
	Log(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, actorID string, kind ActionKind, description string) error
	List(ctx context.Context, req ListEditLogRequest) (ListEditLogResponse, error)
}

var (
	ErrInvalidBooking     = errors.New("invalid_booking")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrInvalidActionKind  = errors.New("invalid_action_kind")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
)
