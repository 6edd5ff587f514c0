package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the booking domain instruments.
type Metrics struct {
	recalculations      metric.Int64Counter
	voucherRejections   metric.Int64Counter
	voucherApplications metric.Int64Counter
	auditEntries        metric.Int64Counter
	bookingConflicts    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New creates the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "campstay"
	}
	meter := provider.Meter(name)

	recalculations, err := meter.Int64Counter("campstay_recalculations_total",
		metric.WithDescription("Booking total recalculations by result."))
	if err != nil {
		return nil, err
	}
	voucherRejections, err := meter.Int64Counter("campstay_voucher_rejections_total",
		metric.WithDescription("Voucher validations rejected by reason."))
	if err != nil {
		return nil, err
	}
	voucherApplications, err := meter.Int64Counter("campstay_voucher_applications_total",
		metric.WithDescription("Voucher usage increments."))
	if err != nil {
		return nil, err
	}
	auditEntries, err := meter.Int64Counter("campstay_audit_entries_total",
		metric.WithDescription("Booking edit log entries written."))
	if err != nil {
		return nil, err
	}
	bookingConflicts, err := meter.Int64Counter("campstay_booking_conflicts_total",
		metric.WithDescription("Booking edits rejected because another edit won."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		recalculations:      recalculations,
		voucherRejections:   voucherRejections,
		voucherApplications: voucherApplications,
		auditEntries:        auditEntries,
		bookingConflicts:    bookingConflicts,
	}, nil
}

// RecordRecalculation counts one engine run. result is "ok" or "failed".
func (m *Metrics) RecordRecalculation(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.recalculations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordVoucherRejection(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.voucherRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordVoucherApplication(ctx context.Context, applicationType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("application_type", strings.TrimSpace(applicationType)))
	m.voucherApplications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAuditEntry(ctx context.Context, actionKind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action_kind", strings.TrimSpace(actionKind)))
	m.auditEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordBookingConflict(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.bookingConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Booking and voucher ids are deliberately absent.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"result":           {},
	"reason":           {},
	"action_kind":      {},
	"application_type": {},
	"operation":        {},
	"route":            {},
	"method":           {},
	"status_code":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
