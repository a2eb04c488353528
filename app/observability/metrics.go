package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the operation-level instrumentation shared by every service.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordSheetsRanked(ctx context.Context, contestID int64, sheets, scopes int)
	RecordCandidatesSelected(ctx context.Context, stage, label string, count int)
}

// PrometheusMetrics implements Metrics on a Prometheus registerer.
type PrometheusMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	ranked     *prometheus.GaugeVec
	scopes     *prometheus.GaugeVec
	selected   *prometheus.CounterVec
}

// NewPrometheusMetrics registers the ranking engine collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "olympiad",
				Name:      "operations_total",
				Help:      "Service operations by outcome.",
			},
			[]string{"service", "operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "olympiad",
				Name:      "operation_duration_seconds",
				Help:      "Service operation latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),
		ranked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "olympiad",
				Name:      "ranked_sheets",
				Help:      "Score sheets in the active ranking snapshot of a contest.",
			},
			[]string{"contest_id"},
		),
		scopes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "olympiad",
				Name:      "ranked_scopes",
				Help:      "Non-empty scopes in the active ranking snapshot of a contest.",
			},
			[]string{"contest_id"},
		),
		selected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "olympiad",
				Name:      "quota_selected_total",
				Help:      "Candidates selected by quota stage and label.",
			},
			[]string{"stage", "label"},
		),
	}
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "attempt").Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "success").Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "failure").Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.duration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordSheetsRanked(_ context.Context, contestID int64, sheets, scopes int) {
	id := strconv.FormatInt(contestID, 10)
	m.ranked.WithLabelValues(id).Set(float64(sheets))
	m.scopes.WithLabelValues(id).Set(float64(scopes))
}

func (m *PrometheusMetrics) RecordCandidatesSelected(_ context.Context, stage, label string, count int) {
	m.selected.WithLabelValues(stage, label).Add(float64(count))
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

// NewNoop returns a Metrics that records nothing.
func NewNoop() Metrics { return NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordSheetsRanked(context.Context, int64, int, int)                    {}
func (NoOpMetrics) RecordCandidatesSelected(context.Context, string, string, int)          {}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NoOpMetrics{}
)
