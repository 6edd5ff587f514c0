package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/campstay/pkg/db"
	"gorm.io/gorm"
)

const (
	MutationResultOK     = "ok"
	MutationResultFailed = "failed"
)

const (
	MutationReasonDeadlineExceeded     = "deadline_exceeded"
	MutationReasonLockTimeout          = "db_lock_timeout"
	MutationReasonSerializationFailure = "serialization_failure"
	MutationReasonUniqueViolation      = "unique_violation"
	MutationReasonDB                   = "db"
	MutationReasonUnknown              = "unknown"
)

// MutationMetrics tracks admin booking edits on the Prometheus registry scraped at /metrics.
type MutationMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

var (
	mutationMetricsOnce sync.Once
	mutationMetrics     *MutationMetrics
)

// Mutations returns the process-wide mutation metrics registered on the default registry.
func Mutations(cfg Config) *MutationMetrics {
	mutationMetricsOnce.Do(func() {
		mutationMetrics = NewMutationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return mutationMetrics
}

func NewMutationMetrics(registerer prometheus.Registerer, cfg Config) *MutationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "campstay"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "campstay_booking_mutations_total",
		Help:        "Admin booking mutations by operation and result.",
		ConstLabels: constLabels,
	}, []string{"operation", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "campstay_booking_mutation_duration_seconds",
		Help:        "Admin booking mutation latency including recalculation and audit.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"operation"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "campstay_booking_mutation_errors_total",
		Help:        "Admin booking mutation failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})

	registerer.MustRegister(runs, duration, errs)

	return &MutationMetrics{
		runs:     runs,
		duration: duration,
		errors:   errs,
	}
}

// ObserveMutation records one finished mutation. reason is used only when err is non-nil;
// an empty reason falls back to ClassifyMutationReason.
func (m *MutationMetrics) ObserveMutation(operation string, elapsed time.Duration, err error, reason string) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err == nil {
		m.runs.WithLabelValues(operation, MutationResultOK).Inc()
		return
	}
	m.runs.WithLabelValues(operation, MutationResultFailed).Inc()
	if reason == "" {
		reason = ClassifyMutationReason(err)
	}
	m.errors.WithLabelValues(operation, reason).Inc()
}

// ClassifyMutationReason maps infrastructure errors to low-cardinality reasons.
func ClassifyMutationReason(err error) string {
	switch {
	case err == nil:
		return MutationReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return MutationReasonDeadlineExceeded
	case db.IsLockTimeoutErr(err):
		return MutationReasonLockTimeout
	case db.IsSerializationErr(err):
		return MutationReasonSerializationFailure
	case db.IsDuplicateKeyErr(err):
		return MutationReasonUniqueViolation
	case isDBError(err):
		return MutationReasonDB
	default:
		return MutationReasonUnknown
	}
}

func isDBError(err error) bool {
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue)
}
