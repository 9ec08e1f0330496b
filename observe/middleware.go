package observe

import (
	"context"

	"github.com/jonwraymond/datahealth/health"
)

// CheckFunc is the signature Middleware wraps: one probe producing a result.
type CheckFunc func(ctx context.Context) health.Result

// Middleware wraps probes with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CheckFunc.
//   - Context: Propagates context through tracing spans.
//   - Ownership: Results are returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability
// components. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a CheckFunc with tracing, metrics, and logging.
// Healthy probes log at debug, degraded at warn and unhealthy at error.
func (m *Middleware) Wrap(b Backend, fn CheckFunc) CheckFunc {
	logger := m.logger.WithBackend(b)

	return func(ctx context.Context) health.Result {
		ctx, span := m.tracer.StartSpan(ctx, b)

		result := fn(ctx)

		m.tracer.EndSpan(span, result)
		m.metrics.RecordProbe(ctx, b, result)

		fields := []Field{
			F("status", result.Status.String()),
			F("response_time_ms", result.ResponseTimeMS()),
		}
		switch result.Status {
		case health.StatusHealthy:
			logger.Debug(ctx, "probe completed", fields...)
		case health.StatusDegraded:
			logger.Warn(ctx, "probe slow", append(fields, Err(result.Error))...)
		default:
			logger.Error(ctx, "probe failed", append(fields, Err(result.Error))...)
		}

		return result
	}
}

// Checker returns c instrumented as backend b. An empty b.Name takes the
// checker's name.
func (m *Middleware) Checker(b Backend, c health.Checker) health.Checker {
	if b.Name == "" {
		b.Name = c.Name()
	}
	return health.NewCheckerFunc(c.Name(), m.Wrap(b, c.Check))
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
