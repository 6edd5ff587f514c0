package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/campstay/internal/config"
	"github.com/smallbiznis/campstay/internal/payment/domain"
	"github.com/smallbiznis/campstay/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSumSettled_CountsOnlySettledStatuses(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:TestSumSettled?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Payment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	bookingID := node.Generate()
	otherBooking := node.Generate()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, p := range []domain.Payment{
		{Amount: 500_000, Status: "paid", BookingID: bookingID},
		{Amount: 250_000, Status: "COMPLETED", BookingID: bookingID},
		{Amount: 100_000, Status: "pending", BookingID: bookingID},
		{Amount: 75_000, Status: "failed", BookingID: bookingID},
		{Amount: 999_000, Status: "paid", BookingID: otherBooking},
	} {
		p.ID = node.Generate()
		p.CreatedAt = now
		require.NoError(t, db.Create(&p).Error)
	}

	cfg := config.DefaultPricingConfig(config.PricingDefaults{})
	svc := NewService(Params{DB: db, Repo: repository.Provide(), Pricing: config.NewStaticPricingConfigHolder(cfg)})

	total, err := svc.SumSettled(context.Background(), nil, bookingID)
	require.NoError(t, err)
	assert.Equal(t, int64(750_000), total)

	none, err := svc.SumSettled(context.Background(), db, node.Generate())
	require.NoError(t, err)
	assert.Equal(t, int64(0), none)
}

func TestListPayments_OrderedByRecordTime(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:TestListPayments?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Payment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	bookingID := node.Generate()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	later := domain.Payment{ID: node.Generate(), BookingID: bookingID, Amount: 100_000, Status: "pending", CreatedAt: now.Add(time.Hour)}
	earlier := domain.Payment{ID: node.Generate(), BookingID: bookingID, Amount: 500_000, Status: "paid", CreatedAt: now}
	require.NoError(t, db.Create(&later).Error)
	require.NoError(t, db.Create(&earlier).Error)

	cfg := config.DefaultPricingConfig(config.PricingDefaults{})
	svc := NewService(Params{DB: db, Repo: repository.Provide(), Pricing: config.NewStaticPricingConfigHolder(cfg)})

	items, err := svc.ListPayments(context.Background(), nil, bookingID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, earlier.ID, items[0].ID)
	assert.Equal(t, later.ID, items[1].ID)

	none, err := svc.ListPayments(context.Background(), db, node.Generate())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
