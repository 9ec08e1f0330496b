package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/datahealth/health"
	"github.com/jonwraymond/datahealth/observe"
	"github.com/jonwraymond/datahealth/resilience"
	"github.com/jonwraymond/datahealth/scoped"
)

// Keys and values written by the operational probes.
const (
	TestKey        = "health_check_test_key"
	TestValue      = "health_check_test_value"
	TestKeyTTL     = 10 * time.Second
	perfKeyPrefix  = "perf_test_key_"
	perfKeyTTL     = 60 * time.Second
	DefaultPerfOps = 100
)

// Name returns the checker name.
func (m *Manager) Name() string {
	return Name
}

// Check implements health.Checker.
func (m *Manager) Check(ctx context.Context) health.Result {
	return m.Probe(ctx, 0)
}

func (m *Manager) ping(ctx context.Context) error {
	return m.Acquire(ctx, func(ctx context.Context, conn *redis.Conn) error {
		return conn.Ping(ctx).Err()
	})
}

func probeDetails(ctx context.Context, conn *redis.Conn) (map[string]any, error) {
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	raw, err := conn.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	i := parseInfo(raw)
	return map[string]any{
		"memory_usage":      i.str("used_memory_human", "unknown"),
		"connected_clients": i.num("connected_clients"),
	}, nil
}

// Ping sends PING bounded by timeout. A non-positive timeout uses the
// configured probe timeout.
func (m *Manager) Ping(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = m.cfg.ProbeTimeout
	}
	err := resilience.ExecuteWithTimeout(ctx, timeout, m.ping)
	switch {
	case err == nil:
		return true
	case errors.Is(err, resilience.ErrTimeout):
		m.logger.Warn(ctx, "redis ping timed out", observe.F("timeout", timeout.String()))
	default:
		m.logger.Error(ctx, "redis ping failed", observe.Err(err))
	}
	return false
}

// Probe sends PING and INFO, then classifies the round trip against the
// latency target. Details carry memory_usage and connected_clients. A
// non-positive timeout uses the configured probe timeout.
func (m *Manager) Probe(ctx context.Context, timeout time.Duration) health.Result {
	if timeout <= 0 {
		timeout = m.cfg.ProbeTimeout
	}
	cfg := health.ProbeConfig{
		Timeout:       timeout,
		LatencyTarget: m.cfg.LatencyTarget,
		Clock:         m.clock,
	}

	result := health.Probe(ctx, cfg, func(ctx context.Context) (map[string]any, error) {
		details, err := scoped.Value(ctx, m.acquire, probeDetails)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return details, nil
	})

	fields := []observe.Field{observe.F("response_time_ms", result.ResponseTimeMS())}
	switch result.Status {
	case health.StatusHealthy:
		m.logger.Info(ctx, "redis health check completed", fields...)
	case health.StatusDegraded:
		m.logger.Warn(ctx, "redis health check slow", append(fields, observe.Err(result.Error))...)
	default:
		m.logger.Error(ctx, "redis health check failed", append(fields, observe.Err(result.Error))...)
	}
	return result
}

// ConnectWithRetry pings up to maxAttempts times, waiting initialDelay
// before the second attempt and doubling the wait after each further
// failure. Each attempt is bounded by the probe timeout, so an attempt that
// hangs counts as a failed one.
func (m *Manager) ConnectWithRetry(ctx context.Context, maxAttempts int, initialDelay time.Duration) bool {
	if initialDelay <= 0 {
		initialDelay = -1
	}
	var attempts atomic.Int32
	exec := resilience.NewExecutor(
		resilience.WithRetryPolicy(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  maxAttempts,
			InitialDelay: initialDelay,
			Clock:        m.clock,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				m.logger.Warn(ctx, "redis connection attempt failed",
					observe.F("attempt", attempt),
					observe.F("next_delay", delay.String()),
					observe.Err(err),
				)
			},
		})),
		resilience.WithTimeout(m.cfg.ProbeTimeout),
	)
	ok := exec.Execute(ctx, func(ctx context.Context) error {
		attempts.Add(1)
		return m.ping(ctx)
	}) == nil

	if ok {
		m.logger.Info(ctx, "redis connection successful", observe.F("attempt", attempts.Load()))
	} else {
		m.logger.Error(ctx, "redis connection failed", observe.F("attempts", attempts.Load()))
	}
	return ok
}

// TestOperations writes, reads and deletes TestKey and reports whether every
// step behaved.
func (m *Manager) TestOperations(ctx context.Context) bool {
	c, err := m.Cache(ctx)
	if err == nil {
		err = RoundTrip(ctx, c, TestKey, []byte(TestValue), TestKeyTTL)
	}
	if err != nil {
		m.logger.Error(ctx, "redis operations test failed", observe.Err(err))
		return false
	}
	m.logger.Debug(ctx, "redis operations test completed")
	return true
}

// OpStats summarizes one batch of commands.
type OpStats struct {
	Count       int     `json:"count"`
	TotalTimeMS float64 `json:"total_time_ms"`
	AvgTimeMS   float64 `json:"avg_time_ms"`
}

// PerformanceOverall summarizes a whole performance run.
type PerformanceOverall struct {
	TotalTimeMS            float64 `json:"total_time_ms"`
	OperationsPerSecond    float64 `json:"operations_per_second"`
	MeetsPerformanceTarget bool    `json:"meets_performance_target"`
}

// PerformanceResult is the outcome of Performance.
type PerformanceResult struct {
	Set     OpStats            `json:"set_operations"`
	Get     OpStats            `json:"get_operations"`
	Overall PerformanceOverall `json:"overall"`
	Error   string             `json:"error,omitempty"`
}

func msOf(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func opStats(n int, d time.Duration) OpStats {
	s := OpStats{Count: n, TotalTimeMS: round2(msOf(d))}
	if n > 0 {
		s.AvgTimeMS = round2(msOf(d) / float64(n))
	}
	return s
}

// Performance times n SET and n GET commands on a dedicated connection and
// removes the keys afterwards. The run meets the target when the whole run
// finishes within the latency target. A non-positive n uses DefaultPerfOps.
func (m *Manager) Performance(ctx context.Context, n int) PerformanceResult {
	if n <= 0 {
		n = DefaultPerfOps
	}
	var res PerformanceResult
	start := m.clock.Now()

	err := m.Acquire(ctx, func(ctx context.Context, conn *redis.Conn) error {
		keys := make([]string, n)
		for i := range keys {
			keys[i] = fmt.Sprintf("%s%d", perfKeyPrefix, i)
		}
		defer func() {
			_ = conn.Del(context.WithoutCancel(ctx), keys...).Err()
		}()

		setStart := m.clock.Now()
		for i, key := range keys {
			if err := conn.Set(ctx, key, fmt.Sprintf("perf_test_value_%d", i), perfKeyTTL).Err(); err != nil {
				return err
			}
		}
		res.Set = opStats(n, m.clock.Since(setStart))

		getStart := m.clock.Now()
		for _, key := range keys {
			if err := conn.Get(ctx, key).Err(); err != nil {
				return err
			}
		}
		res.Get = opStats(n, m.clock.Since(getStart))
		return nil
	})
	if err != nil {
		m.logger.Error(ctx, "redis performance test failed", observe.Err(err))
		res.Error = err.Error()
		return res
	}

	total := m.clock.Since(start)
	res.Overall.TotalTimeMS = round2(msOf(total))
	if total > 0 {
		res.Overall.OperationsPerSecond = round2(float64(2*n) / total.Seconds())
	}
	res.Overall.MeetsPerformanceTarget = total < m.cfg.LatencyTarget

	m.logger.Info(ctx, "redis performance test completed",
		observe.F("operations", 2*n),
		observe.F("total_time_ms", res.Overall.TotalTimeMS),
	)
	return res
}
