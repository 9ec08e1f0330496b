package database

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/datahealth/health"
	"github.com/jonwraymond/datahealth/observe"
	"github.com/jonwraymond/datahealth/resilience"
	"github.com/jonwraymond/datahealth/scoped"
)

const (
	queryActiveConnections  = `SELECT count(*) FROM pg_stat_activity WHERE state = 'active'`
	queryDatabaseSize       = `SELECT pg_size_pretty(pg_database_size(current_database()))`
	queryConnectionsByState = `SELECT coalesce(state, ''), count(*) FROM pg_stat_activity WHERE datname = current_database() GROUP BY state`
	queryDatabaseSizeBytes  = `SELECT pg_database_size(current_database())`
	queryPublicTables       = `SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'`

	availabilityTimeout = 10 * time.Second
)

func selectOne(ctx context.Context, conn *pgxpool.Conn) error {
	var n int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&n); err != nil {
		return err
	}
	if n != 1 {
		return ErrUnexpectedResult
	}
	return nil
}

func probeDetails(ctx context.Context, conn *pgxpool.Conn) (map[string]any, error) {
	if err := selectOne(ctx, conn); err != nil {
		return nil, err
	}
	var active int64
	if err := conn.QueryRow(ctx, queryActiveConnections).Scan(&active); err != nil {
		return nil, err
	}
	var size string
	if err := conn.QueryRow(ctx, queryDatabaseSize).Scan(&size); err != nil {
		return nil, err
	}
	return map[string]any{
		"connection_count": active,
		"database_size":    size,
	}, nil
}

func (m *Manager) selectOne(ctx context.Context) error {
	return m.Acquire(ctx, selectOne)
}

// TestConnection runs SELECT 1 and reports whether it returned 1.
func (m *Manager) TestConnection(ctx context.Context) bool {
	if err := m.selectOne(ctx); err != nil {
		m.logger.Error(ctx, "database connection test failed", observe.Err(err))
		return false
	}
	return true
}

// Ping runs SELECT 1 bounded by timeout. A non-positive timeout uses the
// configured probe timeout.
func (m *Manager) Ping(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = m.cfg.ProbeTimeout
	}
	err := resilience.ExecuteWithTimeout(ctx, timeout, m.selectOne)
	switch {
	case err == nil:
		return true
	case errors.Is(err, resilience.ErrTimeout):
		m.logger.Warn(ctx, "database ping timed out", observe.F("timeout", timeout.String()))
	default:
		m.logger.Error(ctx, "database ping failed", observe.Err(err))
	}
	return false
}

// Name returns the checker name.
func (m *Manager) Name() string {
	return Name
}

// Check implements health.Checker.
func (m *Manager) Check(ctx context.Context) health.Result {
	return m.Probe(ctx, 0)
}

// Probe runs SELECT 1, counts active connections and reads the database
// size, then classifies the round trip against the latency target. A
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
		return scoped.Value(ctx, m.acquire, probeDetails)
	})

	fields := []observe.Field{observe.F("response_time_ms", result.ResponseTimeMS())}
	switch result.Status {
	case health.StatusHealthy:
		m.logger.Info(ctx, "database health check completed", fields...)
	case health.StatusDegraded:
		m.logger.Warn(ctx, "database health check slow", append(fields, observe.Err(result.Error))...)
	default:
		m.logger.Error(ctx, "database health check failed", append(fields, observe.Err(result.Error))...)
	}
	return result
}

// Availability reports whether the database answers and, if not, what kind
// of failure occurred.
type Availability struct {
	Available      bool   `json:"available"`
	Error          string `json:"error,omitempty"`
	ErrorType      string `json:"error_type,omitempty"`
	RetrySuggested bool   `json:"retry_suggested"`
}

// Availability pings the database with a 10 second bound and classifies any
// failure as connectivity, database or system.
func (m *Manager) Availability(ctx context.Context) Availability {
	err := resilience.ExecuteWithTimeout(ctx, availabilityTimeout, m.selectOne)
	if err == nil {
		m.logger.Info(ctx, "database is available")
		return Availability{Available: true}
	}

	errType, retry := classifyError(err)
	m.logger.Error(ctx, "database availability check failed",
		observe.F("error_type", errType),
		observe.Err(err),
	)
	return Availability{
		Error:          err.Error(),
		ErrorType:      errType,
		RetrySuggested: retry,
	}
}

// classifyError maps a failure onto an availability error type. Server
// errors and unreachable servers are worth retrying; anything else is not.
func classifyError(err error) (errType string, retry bool) {
	var (
		pgErr   *pgconn.PgError
		connErr *pgconn.ConnectError
		netErr  net.Error
	)
	switch {
	case errors.As(err, &pgErr):
		return ErrorTypeDatabase, true
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, resilience.ErrTimeout),
		pgconn.Timeout(err):
		return ErrorTypeConnectivity, true
	default:
		return ErrorTypeSystem, false
	}
}

// ConnectWithRetry tests the connection up to maxAttempts times, waiting
// initialDelay before the second attempt and doubling the wait after each
// further failure. Each attempt is bounded by the probe timeout, so an
// attempt that hangs counts as a failed one.
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
				m.logger.Warn(ctx, "database connection attempt failed",
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
		return m.selectOne(ctx)
	}) == nil

	if ok {
		m.logger.Info(ctx, "database connection successful", observe.F("attempt", attempts.Load()))
	} else {
		m.logger.Error(ctx, "database connection failed", observe.F("attempts", attempts.Load()))
	}
	return ok
}

// ConnectWithTimeout tests the connection bounded by timeout.
func (m *Manager) ConnectWithTimeout(ctx context.Context, timeout time.Duration) bool {
	return m.Ping(ctx, timeout)
}

// TimeConnection tests the connection and reports how long it took. A
// duration above the latency target is logged as a warning.
func (m *Manager) TimeConnection(ctx context.Context) (bool, time.Duration) {
	start := m.clock.Now()
	err := m.selectOne(ctx)
	elapsed := m.clock.Since(start)

	if err != nil {
		m.logger.Error(ctx, "database connection failed",
			observe.F("elapsed", elapsed.String()),
			observe.Err(err),
		)
		return false, elapsed
	}

	m.logger.Info(ctx, "database connection established", observe.F("elapsed", elapsed.String()))
	if elapsed > m.cfg.LatencyTarget {
		m.logger.Warn(ctx, "database connection time exceeds target",
			observe.F("elapsed", elapsed.String()),
			observe.F("target", m.cfg.LatencyTarget.String()),
		)
	}
	return true, elapsed
}

// TestRecovery tests the connection twice in a row; both must succeed.
func (m *Manager) TestRecovery(ctx context.Context) bool {
	return m.TestConnection(ctx) && m.TestConnection(ctx)
}

// TestConcurrent runs n SELECT 1 queries concurrently and reports whether
// all of them succeeded.
func (m *Manager) TestConcurrent(ctx context.Context, n int) bool {
	if n <= 0 {
		return true
	}

	var ok atomic.Int64
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			if err := m.selectOne(ctx); err == nil {
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	succeeded := ok.Load()
	m.logger.Info(ctx, "concurrent connection test finished",
		observe.F("successful", succeeded),
		observe.F("total", n),
	)
	return succeeded == int64(n)
}
