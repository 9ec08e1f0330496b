package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultLatencyTarget is the response time above which a backend that
	// answered is reported as degraded.
	DefaultLatencyTarget = 2 * time.Second

	// DefaultProbeTimeout bounds a single probe round trip.
	DefaultProbeTimeout = 5 * time.Second
)

// ProbeFunc performs one round trip against a backend and returns the
// backend-specific metrics gathered on the way.
type ProbeFunc func(ctx context.Context) (map[string]any, error)

// ProbeConfig configures a single probe.
type ProbeConfig struct {
	// Timeout bounds the round trip.
	// Default: 5 seconds
	Timeout time.Duration

	// LatencyTarget separates healthy from degraded.
	// Default: 2 seconds
	LatencyTarget time.Duration

	// Clock measures elapsed time. Default: the real clock.
	Clock clockwork.Clock
}

func (c ProbeConfig) withDefaults() ProbeConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultProbeTimeout
	}
	if c.LatencyTarget <= 0 {
		c.LatencyTarget = DefaultLatencyTarget
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// Classify maps a round trip outcome onto a status: any error is unhealthy,
// a response faster than target is healthy, anything slower is degraded.
func Classify(elapsed, target time.Duration, err error) Status {
	if err != nil {
		return StatusUnhealthy
	}
	if elapsed < target {
		return StatusHealthy
	}
	return StatusDegraded
}

// Probe runs fn bounded by cfg.Timeout and classifies the outcome.
// The returned result always carries a non-negative duration.
func Probe(ctx context.Context, cfg ProbeConfig, fn ProbeFunc) Result {
	cfg = cfg.withDefaults()
	start := cfg.Clock.Now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	type outcome struct {
		details map[string]any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		details, err := fn(ctx)
		done <- outcome{details: details, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if errors.Is(out.err, context.DeadlineExceeded) {
		out.err = fmt.Errorf("%w after %s", ErrCheckTimeout, cfg.Timeout)
	}

	elapsed := cfg.Clock.Since(start)
	if elapsed < 0 {
		elapsed = 0
	}

	ms := Result{Duration: elapsed}.ResponseTimeMS()

	var result Result
	switch Classify(elapsed, cfg.LatencyTarget, out.err) {
	case StatusHealthy:
		result = Healthy(fmt.Sprintf("responded in %.2fms", ms))
	case StatusDegraded:
		err := fmt.Errorf("%w: response time %.2fms exceeds %s target",
			ErrLatencyExceeded, ms, cfg.LatencyTarget)
		result = Degraded(err.Error())
		result.Error = err
	default:
		result = Unhealthy(out.err.Error(), out.err)
	}
	result = result.WithDetails(out.details).WithDuration(elapsed)
	result.Timestamp = start

	return result
}
