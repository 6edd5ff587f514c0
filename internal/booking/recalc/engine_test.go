package recalc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/campstay/internal/booking/aggregate"
	"github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/booking/repository"
	"github.com/smallbiznis/campstay/internal/clock"
	"github.com/smallbiznis/campstay/internal/config"
	paymentdomain "github.com/smallbiznis/campstay/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/campstay/internal/payment/repository"
	paymentservice "github.com/smallbiznis/campstay/internal/payment/service"
	"github.com/smallbiznis/campstay/internal/pricing"
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	taxservice "github.com/smallbiznis/campstay/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	repo   domain.Repository
	engine *Engine
	reader *Reader
}

func newFixture(t *testing.T, mutate func(cfg *config.PricingConfig)) *fixture {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.Booking{},
		&domain.BookingTent{},
		&domain.BookingParameter{},
		&domain.BookingItem{},
		&domain.BookingMenuProduct{},
		&paymentdomain.Payment{},
		&taxdomain.ZoneTaxSetting{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.DefaultPricingConfig(config.PricingDefaults{DefaultTaxRate: 0.1})
	if mutate != nil {
		mutate(&cfg)
	}
	holder := config.NewStaticPricingConfigHolder(cfg)
	clk := clock.NewFakeClock(testNow)
	log := zap.NewNop()
	repo := repository.Provide()

	rates := taxservice.NewService(taxservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Pricing: holder})
	engine := NewEngine(Params{
		DB:          db,
		Log:         log,
		Repo:        repo,
		Aggregators: aggregate.NewSet(repo),
		Rates:       rates,
		Pricing:     holder,
		Clock:       clk,
	})
	payments := paymentservice.NewService(paymentservice.Params{DB: db, Repo: paymentrepo.Provide(), Pricing: holder})
	reader := NewReader(ReaderParams{DB: db, Repo: repo, Engine: engine, Payments: payments})

	return &fixture{db: db, node: node, repo: repo, engine: engine, reader: reader}
}

func (f *fixture) booking(t *testing.T) domain.Booking {
	t.Helper()
	b := domain.Booking{
		ID:            f.node.Generate(),
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: "pending",
		CheckInDate:   testNow,
		CheckOutDate:  testNow.AddDate(0, 0, 2),
		Currency:      "VND",
		Version:       1,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	require.NoError(t, f.db.Create(&b).Error)
	return b
}

func (f *fixture) tent(t *testing.T, bookingID snowflake.ID, subtotal int64, mutate func(*domain.BookingTent)) domain.BookingTent {
	t.Helper()
	tent := domain.BookingTent{
		ID:           f.node.Generate(),
		BookingID:    bookingID,
		ItemID:       f.node.Generate(),
		CheckInDate:  testNow,
		CheckOutDate: testNow.AddDate(0, 0, 2),
		Nights:       2,
		Subtotal:     subtotal,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	if mutate != nil {
		mutate(&tent)
	}
	require.NoError(t, f.repo.InsertTent(context.Background(), f.db, &tent))
	return tent
}

func (f *fixture) item(t *testing.T, bookingID snowflake.ID, tentID *snowflake.ID, qty, unit int64, line domain.LineKind) domain.BookingItem {
	t.Helper()
	meta, err := domain.EncodeLine(line)
	require.NoError(t, err)
	itemID := f.node.Generate()
	item := domain.BookingItem{
		ID:            f.node.Generate(),
		BookingID:     bookingID,
		BookingTentID: tentID,
		ItemID:        itemID,
		Quantity:      qty,
		UnitPrice:     unit,
		Metadata:      meta,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if _, ok := line.(domain.AddonLine); ok {
		item.AddonItemID = &itemID
	}
	require.NoError(t, f.repo.InsertItem(context.Background(), f.db, &item))
	return item
}

func (f *fixture) recalculate(t *testing.T, bookingID snowflake.ID) (domain.Totals, error) {
	t.Helper()
	var totals domain.Totals
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		totals, err = f.engine.Recalculate(context.Background(), tx, bookingID)
		return err
	})
	return totals, err
}

func (f *fixture) stored(t *testing.T, bookingID snowflake.ID) domain.Booking {
	t.Helper()
	b, err := f.repo.FindBooking(context.Background(), f.db, bookingID)
	require.NoError(t, err)
	require.NotNil(t, b)
	return *b
}

// scenarioA is one 2,000,000 tent plus two per-person add-ons at 150,000.
func scenarioA(t *testing.T, f *fixture, mutateTent func(*domain.BookingTent)) domain.Booking {
	b := f.booking(t)
	tent := f.tent(t, b.ID, 2_000_000, mutateTent)
	f.item(t, b.ID, &tent.ID, 2, 150_000, domain.AddonLine{PricingMode: pricing.PerPerson})
	return b
}

func TestRecalculate_ScenarioA(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)

	want := domain.Totals{Subtotal: 2_300_000, DiscountAmount: 0, TaxAmount: 230_000, TotalAmount: 2_530_000}
	assert.Equal(t, want, totals)
	assert.Equal(t, want, f.stored(t, b.ID).StoredTotals())
}

func TestRecalculate_ScenarioB_TentVoucher(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, func(tent *domain.BookingTent) {
		tent.VoucherFields = domain.VoucherFieldsFrom(&domain.VoucherSnapshot{
			ID:                1,
			Code:              "TENT10",
			DiscountType:      "percentage",
			DiscountValue:     10,
			DiscountAmount:    200_000,
			ApplicationMethod: string(pricing.PerBookingBeforeTax),
		})
	})

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{Subtotal: 2_300_000, DiscountAmount: 200_000, TaxAmount: 210_000, TotalAmount: 2_310_000}, totals)
}

func TestRecalculate_ScenarioC_OverrideWins(t *testing.T) {
	f := newFixture(t, nil)
	override := int64(1_800_000)
	b := f.booking(t)
	tent := f.tent(t, b.ID, 2_000_000, func(tent *domain.BookingTent) { tent.SubtotalOverride = &override })
	f.item(t, b.ID, &tent.ID, 2, 600_000, domain.TentParameterLine{PricingMode: pricing.PerPerson})
	f.item(t, b.ID, &tent.ID, 2, 400_000, domain.TentParameterLine{PricingMode: pricing.PerPerson})

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_800_000), totals.Subtotal)
	assert.Equal(t, int64(1_980_000), totals.TotalAmount)
}

func TestBalanceDue_ScenarioD(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID: f.node.Generate(), BookingID: b.ID, Amount: 1_000_000, Status: "successful", CreatedAt: testNow,
	}).Error)

	balance, err := f.reader.BalanceDue(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_530_000), balance)
}

func TestBalanceDue_FlooredAtZero(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID: f.node.Generate(), BookingID: b.ID, Amount: 5_000_000, Status: "paid", CreatedAt: testNow,
	}).Error)

	balance, err := f.reader.BalanceDue(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRecalculate_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)

	first, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	second, err := f.recalculate(t, b.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, f.stored(t, b.ID).StoredTotals())
}

func TestLiveTotal_MatchesRecalculate(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	f.item(t, b.ID, nil, 3, 45_000, domain.AddonLine{PricingMode: pricing.PerGroup})

	live, err := f.reader.LiveTotal(context.Background(), b.ID)
	require.NoError(t, err)
	persisted, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, persisted, live)
}

func TestRecalculate_PerGroupAddonIgnoresQuantity(t *testing.T) {
	f := newFixture(t, nil)
	b := f.booking(t)
	f.item(t, b.ID, nil, 4, 500_000, domain.AddonLine{PricingMode: pricing.PerGroup})

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), totals.Subtotal)
}

func TestRecalculate_AddonPriceOverrideAndVoucher(t *testing.T) {
	f := newFixture(t, nil)
	b := f.booking(t)
	override := int64(250_000)
	f.item(t, b.ID, nil, 2, 150_000, domain.AddonLine{
		PricingMode:   pricing.PerPerson,
		PriceOverride: &override,
		Voucher:       &domain.VoucherSnapshot{Code: "ADDON", DiscountType: "fixed", DiscountValue: 50_000, DiscountAmount: 50_000},
	})

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{Subtotal: 250_000, DiscountAmount: 50_000, TaxAmount: 20_000, TotalAmount: 220_000}, totals)
}

func TestRecalculate_MenuProducts(t *testing.T) {
	f := newFixture(t, nil)
	b := f.booking(t)
	for _, p := range []domain.BookingMenuProduct{
		{Quantity: 2, UnitPrice: 100_000, TotalPrice: 200_000},
		{Quantity: 1, UnitPrice: 80_000, TotalPrice: 80_000, VoucherFields: domain.VoucherFieldsFrom(&domain.VoucherSnapshot{Code: "MENU", DiscountAmount: 8_000})},
	} {
		p.ID = f.node.Generate()
		p.BookingID = b.ID
		p.MenuItemID = f.node.Generate()
		p.CreatedAt = testNow
		p.UpdatedAt = testNow
		require.NoError(t, f.repo.InsertMenuProduct(context.Background(), f.db, &p))
	}

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{Subtotal: 280_000, DiscountAmount: 8_000, TaxAmount: 27_200, TotalAmount: 299_200}, totals)
}

func TestRecalculate_DiscountClampedToSubtotal(t *testing.T) {
	f := newFixture(t, nil)
	b := f.booking(t)
	f.tent(t, b.ID, 100_000, func(tent *domain.BookingTent) {
		tent.VoucherFields = domain.VoucherFieldsFrom(&domain.VoucherSnapshot{Code: "BIG", DiscountAmount: 400_000})
	})

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{Subtotal: 100_000, DiscountAmount: 100_000, TaxAmount: 0, TotalAmount: 0}, totals)
	assert.True(t, totals.Balanced())
}

func TestRecalculate_EmptyBooking(t *testing.T) {
	f := newFixture(t, nil)
	b := f.booking(t)

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{}, totals)
}

func TestRecalculate_UnknownMetadataFailsWithoutWriting(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	_, err := f.recalculate(t, b.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`INSERT INTO booking_items (id, booking_id, item_id, quantity, unit_price, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, 1, 10, ?, ?, ?)`,
		f.node.Generate(), b.ID, f.node.Generate(), `{"type":"mystery"}`, testNow, testNow,
	).Error)

	_, err = f.recalculate(t, b.ID)
	assert.ErrorIs(t, err, domain.ErrRecalculationFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidLineMetadata)
	assert.Equal(t, int64(2_530_000), f.stored(t, b.ID).TotalAmount)
}

func TestRecalculate_BookingNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.recalculate(t, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestRecalculate_ZoneRateAndPerLinePolicy(t *testing.T) {
	f := newFixture(t, func(cfg *config.PricingConfig) {
		cfg.TaxPolicy = string(pricing.TaxPolicyPerLine)
		cfg.ZoneTaxRates = map[string]float64{"77": 0.08}
	})
	b := f.booking(t)
	require.NoError(t, f.db.Model(&domain.Booking{}).Where("id = ?", b.ID).Update("zone_id", 77).Error)

	f.tent(t, b.ID, 1_000_000, func(tent *domain.BookingTent) {
		tent.VoucherFields = domain.VoucherFieldsFrom(&domain.VoucherSnapshot{
			Code: "AFTER", DiscountAmount: 100_000, ApplicationMethod: string(pricing.AfterTax),
		})
	})
	f.item(t, b.ID, nil, 1, 500_000, domain.AddonLine{
		PricingMode: pricing.PerPerson,
		Voucher: &domain.VoucherSnapshot{
			Code: "BEFORE", DiscountAmount: 50_000, ApplicationMethod: string(pricing.PerBookingBeforeTax),
		},
	})

	totals, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	// tent taxed on 1,000,000 gross, add-on on 450,000 net
	assert.Equal(t, int64(80_000+36_000), totals.TaxAmount)
	assert.Equal(t, int64(150_000), totals.DiscountAmount)
	assert.Equal(t, int64(1_350_000+116_000), totals.TotalAmount)
	assert.True(t, totals.Balanced())
}

func TestDepositDue_KeepsStoredRatio(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	_, err := f.recalculate(t, b.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateDepositDue(context.Background(), f.db, b.ID, 759_000, 0.3))

	f.item(t, b.ID, nil, 1, 200_000, domain.AddonLine{PricingMode: pricing.PerPerson})

	deposit, err := f.reader.DepositDue(context.Background(), b.ID)
	require.NoError(t, err)
	// live total is 2,750,000; 30% of it
	assert.Equal(t, int64(825_000), deposit)
}

func TestAgreedDepositRatio_PrefersPersistedRatio(t *testing.T) {
	ratio := 0.3
	assert.InDelta(t, 0.3, AgreedDepositRatio(&domain.Booking{DepositRatio: &ratio}), 1e-9)
	// the pair alone loses the share once the total has dropped to zero
	assert.InDelta(t, 0.3, AgreedDepositRatio(&domain.Booking{DepositRatio: &ratio, TotalAmount: 0, DepositDue: 0}), 1e-9)
	assert.InDelta(t, 0.5, AgreedDepositRatio(&domain.Booking{TotalAmount: 1000, DepositDue: 500}), 1e-9)

	invalid := 1.5
	assert.Equal(t, 1.0, AgreedDepositRatio(&domain.Booking{DepositRatio: &invalid}))
	assert.Equal(t, 1.0, AgreedDepositRatio(nil))
}

func TestDepositDue_DefaultsToFullTotal(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)

	deposit, err := f.reader.DepositDue(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2_530_000), deposit)
}

func TestSummary_FlagsStaleStoredTotals(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	_, err := f.recalculate(t, b.ID)
	require.NoError(t, err)

	summary, err := f.reader.Summary(context.Background(), b.ID)
	require.NoError(t, err)
	assert.False(t, summary.Stale)
	assert.Equal(t, int64(2_530_000), summary.BalanceDue)

	f.item(t, b.ID, nil, 1, 100_000, domain.AddonLine{PricingMode: pricing.PerPerson})
	summary, err = f.reader.Summary(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, summary.Stale)
	assert.Equal(t, int64(2_640_000), summary.Live.TotalAmount)
	assert.Equal(t, int64(2_530_000), summary.Stored.TotalAmount)
}

func TestSummary_ListsPaymentsWithSettledTotal(t *testing.T) {
	f := newFixture(t, nil)
	b := scenarioA(t, f, nil)
	_, err := f.recalculate(t, b.ID)
	require.NoError(t, err)

	paid := f.node.Generate()
	pending := f.node.Generate()
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID: paid, BookingID: b.ID, Amount: 1_000_000, Status: "paid", CreatedAt: testNow,
	}).Error)
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID: pending, BookingID: b.ID, Amount: 400_000, Status: "pending", CreatedAt: testNow.Add(time.Hour),
	}).Error)

	summary, err := f.reader.Summary(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, summary.Payments, 2)
	assert.Equal(t, paid, summary.Payments[0].ID)
	assert.Equal(t, pending, summary.Payments[1].ID)
	assert.Equal(t, int64(1_000_000), summary.SettledTotal)
	assert.Equal(t, int64(1_530_000), summary.BalanceDue)
}

func TestDepositRatio(t *testing.T) {
	assert.Equal(t, 1.0, DepositRatio(0, 1000))
	assert.Equal(t, 1.0, DepositRatio(300, 0))
	assert.InDelta(t, 0.3, DepositRatio(300, 1000), 1e-9)
	assert.Equal(t, 1.0, DepositRatio(1200, 1000))
	assert.Equal(t, int64(0), ApplyDepositRatio(0, 0.5))
	assert.Equal(t, int64(333), ApplyDepositRatio(1000, 1.0/3))
}
