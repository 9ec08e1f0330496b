package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/datahealth/health"
)

// Metrics records probe metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordProbe records one probe outcome.
	RecordProbe(ctx context.Context, b Backend, result health.Result)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the probe instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"probe.total",
		metric.WithDescription("Total number of backend probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"probe.errors",
		metric.WithDescription("Total number of unhealthy backend probes"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"probe.duration_ms",
		metric.WithDescription("Backend probe response time in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordProbe records metrics for a probe. The total counter carries the
// status so degraded probes can be counted separately.
func (m *metricsImpl) RecordProbe(ctx context.Context, b Backend, result health.Result) {
	base := metric.WithAttributes(attribute.String("backend.name", b.Name))

	m.totalCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend.name", b.Name),
		attribute.String("probe.status", result.Status.String()),
	))

	if result.Status == health.StatusUnhealthy {
		m.errorCount.Add(ctx, 1, base)
	}

	m.durationHist.Record(ctx, result.ResponseTimeMS(), base)
}

type noopMetrics struct{}

func (noopMetrics) RecordProbe(ctx context.Context, b Backend, result health.Result) {}
