package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("booking_id", "123"),
		attribute.String("reason", "voucher_expired"),
		attribute.String("action_kind", "item_edit"),
	)
	require.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("booking_id"), attr.Key)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRecalculation(context.Background(), "ok")
	m.RecordVoucherRejection(context.Background(), "voucher_expired")
	m.RecordAuditEntry(context.Background(), "item_add")

	var mm *MutationMetrics
	mm.ObserveMutation("add_tent", time.Millisecond, nil, "")
}

func TestRecordRecalculationExportsCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "campstay-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRecalculation(ctx, "ok")
	m.RecordRecalculation(ctx, "ok")
	m.RecordRecalculation(ctx, "failed")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, md := range scope.Metrics {
			if md.Name != "campstay_recalculations_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				result, _ := dp.Attributes.Value("result")
				totals[result.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals["ok"])
	assert.Equal(t, int64(1), totals["failed"])
}

func TestMutationMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMutationMetrics(registry, Config{ServiceName: "campstay", Environment: "test"})

	m.ObserveMutation("update_tent", 10*time.Millisecond, nil, "")
	m.ObserveMutation("update_tent", 10*time.Millisecond, errors.New("voucher_expired"), "voucher_expired")
	m.ObserveMutation("update_tent", 10*time.Millisecond, &pgconn.PgError{Code: "40001"}, "")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("update_tent", MutationResultOK)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.runs.WithLabelValues("update_tent", MutationResultFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("update_tent", "voucher_expired")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("update_tent", MutationReasonSerializationFailure)))
}

func TestClassifyMutationReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: MutationReasonDeadlineExceeded},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: MutationReasonLockTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: MutationReasonSerializationFailure},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: MutationReasonSerializationFailure},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: MutationReasonUniqueViolation},
		{name: "invalid tx", err: gorm.ErrInvalidTransaction, want: MutationReasonDB},
		{name: "unknown", err: errors.New("boom"), want: MutationReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyMutationReason(tc.err))
		})
	}
}
