package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/internal/audit/repository"
	"github.com/smallbiznis/campstay/internal/clock"
	obscontext "github.com/smallbiznis/campstay/internal/observability/context"
	"github.com/smallbiznis/campstay/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&auditdomain.EditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return db, svc, clk
}

func TestLog_WritesEntryWithRequestID(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-123")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Log(ctx, tx, 42, "admin-7", auditdomain.ActionItemAdd, "Added tent Riverside Dome")
	})
	require.NoError(t, err)

	var logs []auditdomain.EditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, snowflake.ID(42), logs[0].BookingID)
	assert.Equal(t, "admin-7", logs[0].ActorID)
	assert.Equal(t, auditdomain.ActionItemAdd, logs[0].ActionKind)
	assert.Equal(t, "req-123", logs[0].Metadata["request_id"])
}

func TestLog_RolledBackWithTransaction(t *testing.T) {
	db, svc, _ := setup(t)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Log(context.Background(), tx, 42, "admin-7", auditdomain.ActionItemEdit, "Edited add-on"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&auditdomain.EditLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLog_Validation(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Log(ctx, db, 0, "a", auditdomain.ActionItemAdd, "x"), auditdomain.ErrInvalidBooking)
	assert.ErrorIs(t, svc.Log(ctx, db, 1, " ", auditdomain.ActionItemAdd, "x"), auditdomain.ErrInvalidActor)
	assert.ErrorIs(t, svc.Log(ctx, db, 1, "a", "item_rename", "x"), auditdomain.ErrInvalidActionKind)
	assert.ErrorIs(t, svc.Log(ctx, db, 1, "a", auditdomain.ActionItemDelete, ""), auditdomain.ErrInvalidDescription)
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	db, svc, clk := setup(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, svc.Log(ctx, db, 42, "admin-7", auditdomain.ActionItemEdit, fmt.Sprintf("edit %d", i)))
		clk.Advance(time.Second)
	}
	require.NoError(t, svc.Log(ctx, db, 99, "admin-7", auditdomain.ActionItemEdit, "other booking"))

	first, err := svc.List(ctx, auditdomain.ListEditLogRequest{
		BookingID:  42,
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.EditLogs, 2)
	assert.Equal(t, "edit 5", first.EditLogs[0].Description)
	assert.Equal(t, "edit 4", first.EditLogs[1].Description)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, auditdomain.ListEditLogRequest{
		BookingID:  42,
		Pagination: pagination.Pagination{PageSize: 3, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.EditLogs, 3)
	assert.Equal(t, "edit 3", second.EditLogs[0].Description)
	assert.Equal(t, "edit 1", second.EditLogs[2].Description)
	assert.False(t, second.HasMore)
}

func TestList_RejectsBadToken(t *testing.T) {
	_, svc, _ := setup(t)

	_, err := svc.List(context.Background(), auditdomain.ListEditLogRequest{
		BookingID:  42,
		Pagination: pagination.Pagination{PageToken: "%%%"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
