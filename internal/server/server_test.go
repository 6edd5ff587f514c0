package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/booking/recalc"
	"github.com/smallbiznis/campstay/internal/ratelimit"
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"github.com/smallbiznis/campstay/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeBookingService struct {
	err    error
	result bookingdomain.MutationResult

	lastMeta  bookingdomain.MutationMeta
	lastTent  bookingdomain.TentInput
	lastAddon bookingdomain.AddonInput
	lastID    snowflake.ID
}

func (f *fakeBookingService) respond(meta bookingdomain.MutationMeta) (*bookingdomain.MutationResult, error) {
	f.lastMeta = meta
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	res.BookingID = meta.BookingID
	return &res, nil
}

func (f *fakeBookingService) AddTent(_ context.Context, req bookingdomain.AddTentRequest) (*bookingdomain.MutationResult, error) {
	f.lastTent = req.Tent
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) UpdateTent(_ context.Context, req bookingdomain.UpdateTentRequest) (*bookingdomain.MutationResult, error) {
	f.lastTent = req.Tent
	f.lastID = req.TentID
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) DeleteTent(_ context.Context, req bookingdomain.DeleteTentRequest) (*bookingdomain.MutationResult, error) {
	f.lastID = req.TentID
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) AddAddon(_ context.Context, req bookingdomain.AddAddonRequest) (*bookingdomain.MutationResult, error) {
	f.lastAddon = req.Addon
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) UpdateAddon(_ context.Context, req bookingdomain.UpdateAddonRequest) (*bookingdomain.MutationResult, error) {
	f.lastAddon = req.Addon
	f.lastID = req.ItemID
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) DeleteAddon(_ context.Context, req bookingdomain.DeleteAddonRequest) (*bookingdomain.MutationResult, error) {
	f.lastID = req.ItemID
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) AddMenuProduct(_ context.Context, req bookingdomain.AddMenuProductRequest) (*bookingdomain.MutationResult, error) {
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) UpdateMenuProduct(_ context.Context, req bookingdomain.UpdateMenuProductRequest) (*bookingdomain.MutationResult, error) {
	f.lastID = req.ProductID
	return f.respond(req.MutationMeta)
}

func (f *fakeBookingService) DeleteMenuProduct(_ context.Context, req bookingdomain.DeleteMenuProductRequest) (*bookingdomain.MutationResult, error) {
	f.lastID = req.ProductID
	return f.respond(req.MutationMeta)
}

type fakeTotals struct {
	summary recalc.Summary
	err     error
}

func (f *fakeTotals) Summary(_ context.Context, bookingID snowflake.ID) (recalc.Summary, error) {
	if f.err != nil {
		return recalc.Summary{}, f.err
	}
	s := f.summary
	s.BookingID = bookingID
	return s, nil
}

type fakeAudit struct {
	lastReq auditdomain.ListEditLogRequest
}

func (f *fakeAudit) Log(context.Context, *gorm.DB, snowflake.ID, string, auditdomain.ActionKind, string) error {
	return nil
}

func (f *fakeAudit) List(_ context.Context, req auditdomain.ListEditLogRequest) (auditdomain.ListEditLogResponse, error) {
	f.lastReq = req
	return auditdomain.ListEditLogResponse{
		PageInfo: pagination.PageInfo{NextPageToken: "next", HasMore: true},
		EditLogs: []auditdomain.EditLog{{ID: 9, BookingID: req.BookingID, ActorID: "admin", ActionKind: auditdomain.ActionItemAdd, Description: "Added tent"}},
	}, nil
}

type fakeVouchers struct {
	err      error
	lastCode string
	lastCtx  voucherdomain.ValidationContext
}

func (f *fakeVouchers) Validate(_ context.Context, code string, vctx voucherdomain.ValidationContext) (*voucherdomain.Result, error) {
	f.lastCode = code
	f.lastCtx = vctx
	if f.err != nil {
		return nil, f.err
	}
	return &voucherdomain.Result{Code: "SUMMER10", DiscountType: voucherdomain.DiscountPercentage, DiscountValue: 10, DiscountAmount: 50_000}, nil
}

func (f *fakeVouchers) ValidateTx(ctx context.Context, _ *gorm.DB, code string, vctx voucherdomain.ValidationContext) (*voucherdomain.Result, error) {
	return f.Validate(ctx, code, vctx)
}

func (f *fakeVouchers) Apply(ctx context.Context, _ *gorm.DB, code string, vctx voucherdomain.ValidationContext) (*voucherdomain.Result, error) {
	return f.Validate(ctx, code, vctx)
}

type fakeTax struct {
	lastZone    snowflake.ID
	lastRate    float64
	lastEnabled bool
}

func (f *fakeTax) RateForZone(context.Context, *gorm.DB, snowflake.ID) (taxdomain.Rate, error) {
	return taxdomain.Rate{Rate: 0.1, Source: taxdomain.SourceDefault}, nil
}

func (f *fakeTax) UpsertZoneRate(_ context.Context, zoneID snowflake.ID, rate float64, enabled bool) (*taxdomain.ZoneTaxSetting, error) {
	f.lastZone, f.lastRate, f.lastEnabled = zoneID, rate, enabled
	if rate < 0 || rate > 1 {
		return nil, taxdomain.ErrInvalidTaxRate
	}
	return &taxdomain.ZoneTaxSetting{ID: 1, ZoneID: zoneID, Rate: rate, IsEnabled: enabled}, nil
}

type harness struct {
	router   *gin.Engine
	bookings *fakeBookingService
	totals   *fakeTotals
	audit    *fakeAudit
	vouchers *fakeVouchers
	tax      *fakeTax
}

func newHarness() *harness {
	gin.SetMode(gin.TestMode)
	h := &harness{
		bookings: &fakeBookingService{result: bookingdomain.MutationResult{
			Version: 4,
			Totals:  bookingdomain.Totals{Subtotal: 1_000_000, TaxAmount: 100_000, TotalAmount: 1_100_000},
		}},
		totals:   &fakeTotals{summary: recalc.Summary{Version: 7, Currency: "VND"}},
		audit:    &fakeAudit{},
		vouchers: &fakeVouchers{},
		tax:      &fakeTax{},
	}
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:        router,
		BookingSvc: h.bookings,
		Totals:     h.totals,
		AuditSvc:   h.audit,
		VoucherSvc: h.vouchers,
		TaxSvc:     h.tax,
	})
	h.router = router
	return h
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

var actorHeader = map[string]string{"X-Actor-ID": "admin-1"}

func TestAddTent_RequiresActor(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodPost, "/admin/bookings/10/tents", `{"item_id":"5"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, h.bookings.lastMeta.BookingID)
}

func TestAddTent_PassesVersionAndBody(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodPost, "/admin/bookings/10/tents",
		`{"item_id":"5","parameters":[{"parameter_id":"11","quantity":2,"unit_price":500000,"pricing_mode":"per_person"}],"voucher_code":"SUMMER10"}`,
		map[string]string{"X-Actor-ID": "admin-1", "If-Match": `"3"`})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, `"4"`, resp.Header().Get("ETag"))

	meta := h.bookings.lastMeta
	assert.Equal(t, snowflake.ID(10), meta.BookingID)
	assert.Equal(t, "admin-1", meta.ActorID)
	require.NotNil(t, meta.ExpectedVersion)
	assert.Equal(t, int64(3), *meta.ExpectedVersion)

	assert.Equal(t, snowflake.ID(5), h.bookings.lastTent.ItemID)
	require.Len(t, h.bookings.lastTent.Parameters, 1)
	assert.Equal(t, int64(500_000), h.bookings.lastTent.Parameters[0].UnitPrice)
	assert.Equal(t, "SUMMER10", h.bookings.lastTent.VoucherCode)

	var body struct {
		Data bookingdomain.MutationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, int64(1_100_000), body.Data.Totals.TotalAmount)
}

func TestUpdateAddon_ExpectedVersionFromQuery(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodPatch, "/admin/bookings/10/addons/77?expected_version=2", `{"addon_item_id":"8","quantity":1,"unit_price":90000}`, actorHeader)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, snowflake.ID(77), h.bookings.lastID)
	require.NotNil(t, h.bookings.lastMeta.ExpectedVersion)
	assert.Equal(t, int64(2), *h.bookings.lastMeta.ExpectedVersion)
	assert.Equal(t, snowflake.ID(8), h.bookings.lastAddon.AddonItemID)
}

func TestMutation_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		wantType string
	}{
		{"version conflict", bookingdomain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{"locked", bookingdomain.ErrBookingLocked, http.StatusConflict, "booking_locked"},
		{"rate limited", ratelimit.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"cancelled", bookingdomain.ErrBookingCancelled, http.StatusConflict, "conflict"},
		{"tent missing", bookingdomain.ErrTentNotFound, http.StatusNotFound, "not_found"},
		{"voucher expired", fmt.Errorf("apply: %w", voucherdomain.ErrVoucherExpired), http.StatusUnprocessableEntity, voucherdomain.ErrVoucherExpired.Error()},
		{"voucher used up", voucherdomain.ErrVoucherUsageExceeded, http.StatusUnprocessableEntity, voucherdomain.ErrVoucherUsageExceeded.Error()},
		{"bad quantity", bookingdomain.ErrInvalidQuantity, http.StatusBadRequest, "validation_error"},
		{"recalc failure", fmt.Errorf("%w: boom", bookingdomain.ErrRecalculationFailed), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			h.bookings.err = tc.err

			resp := h.do(http.MethodDelete, "/admin/bookings/10/tents/3", "", actorHeader)

			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, tc.wantType, decodeError(t, resp).Type)
		})
	}
}

func TestMutation_ValidationErrorCarriesField(t *testing.T) {
	h := newHarness()
	h.bookings.err = bookingdomain.ErrInvalidQuantity

	resp := h.do(http.MethodPost, "/admin/bookings/10/addons", `{"addon_item_id":"8","quantity":-1}`, actorHeader)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "quantity", payload.Errors[0].Field)
	assert.Equal(t, "invalid_quantity", payload.Errors[0].Code)
}

func TestMutation_RejectsBadPathAndVersion(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodDelete, "/admin/bookings/abc/menu-products/3", "", actorHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = h.do(http.MethodDelete, "/admin/bookings/10/menu-products/3", "", map[string]string{"X-Actor-ID": "a", "If-Match": "soon"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_expected_version", decodeError(t, resp).Errors[0].Code)

	resp = h.do(http.MethodPost, "/admin/bookings/10/menu-products", `{not json`, actorHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Zero(t, h.bookings.lastMeta.BookingID)
}

func TestGetBookingTotals(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodGet, "/admin/bookings/10/totals", "", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `"7"`, resp.Header().Get("ETag"))
	var body struct {
		Data recalc.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, snowflake.ID(10), body.Data.BookingID)
	assert.Equal(t, "VND", body.Data.Currency)
}

func TestGetBookingTotals_NotFound(t *testing.T) {
	h := newHarness()
	h.totals.err = bookingdomain.ErrBookingNotFound

	resp := h.do(http.MethodGet, "/admin/bookings/10/totals", "", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListEditLogs(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodGet, "/admin/bookings/10/edit-logs?page_size=5&page_token=abc&action_kind=item_add", "", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, snowflake.ID(10), h.audit.lastReq.BookingID)
	assert.Equal(t, 5, h.audit.lastReq.PageSize)
	assert.Equal(t, "abc", h.audit.lastReq.PageToken)
	assert.Equal(t, "item_add", h.audit.lastReq.ActionKind)

	var body struct {
		Data     []auditdomain.EditLog `json:"data"`
		PageInfo pagination.PageInfo   `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.True(t, body.PageInfo.HasMore)
}

func TestValidateVoucher(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodPost, "/admin/vouchers/validate",
		`{"code":"summer10","zone_id":"3","total_amount":500000,"application_type":"Accommodation","check_in":"2026-07-01"}`, nil)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "summer10", h.vouchers.lastCode)
	assert.Equal(t, snowflake.ID(3), h.vouchers.lastCtx.ZoneID)
	assert.Equal(t, voucherdomain.ApplyAccommodation, h.vouchers.lastCtx.ApplicationType)
	assert.Equal(t, 2026, h.vouchers.lastCtx.CheckIn.Year())
}

func TestValidateVoucher_Rejected(t *testing.T) {
	h := newHarness()
	h.vouchers.err = voucherdomain.ErrVoucherScopeMismatch

	resp := h.do(http.MethodPost, "/admin/vouchers/validate", `{"code":"X","total_amount":1}`, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, voucherdomain.ErrVoucherScopeMismatch.Error(), decodeError(t, resp).Type)
}

func TestPutZoneTaxRate(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodPut, "/admin/zones/3/tax-rate", `{"rate":0.08}`, actorHeader)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, snowflake.ID(3), h.tax.lastZone)
	assert.InDelta(t, 0.08, h.tax.lastRate, 1e-9)
	assert.True(t, h.tax.lastEnabled)

	var body struct {
		Data taxdomain.ZoneTaxSetting `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, snowflake.ID(3), body.Data.ZoneID)

	resp = h.do(http.MethodPut, "/admin/zones/3/tax-rate", `{"rate":0.05,"enabled":false}`, actorHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, h.tax.lastEnabled)
}

func TestPutZoneTaxRate_Rejections(t *testing.T) {
	h := newHarness()

	resp := h.do(http.MethodPut, "/admin/zones/3/tax-rate", `{"rate":0.08}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, h.tax.lastZone)

	resp = h.do(http.MethodPut, "/admin/zones/3/tax-rate", `{}`, actorHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_tax_rate", decodeError(t, resp).Errors[0].Code)

	resp = h.do(http.MethodPut, "/admin/zones/3/tax-rate", `{"rate":1.5}`, actorHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_tax_rate", decodeError(t, resp).Errors[0].Code)

	resp = h.do(http.MethodPut, "/admin/zones/abc/tax-rate", `{"rate":0.1}`, actorHeader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(bookingdomain.ErrInvalidDateRange)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_date_range", code)

	typ, code = classifyErrorForLog(bookingdomain.ErrConcurrentModification)
	assert.Equal(t, "concurrent_modification", typ)
	assert.Equal(t, "concurrent_modification", code)
}
