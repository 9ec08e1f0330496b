package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/datahealth/observe"
	"github.com/jonwraymond/datahealth/scoped"
)

// Name is the checker name of the PostgreSQL backend.
const Name = "postgres"

// Manager owns the process-wide PostgreSQL pool.
//
// Contract:
//   - Concurrency: safe for concurrent use; the pool is created at most once
//     between Close calls.
//   - Ownership: callers never close the pool returned by Pool; use Close.
type Manager struct {
	cfg     Config
	poolCfg *pgxpool.Config
	backend observe.Backend
	logger  observe.Logger
	clock   clockwork.Clock

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default: no logging.
func WithLogger(l observe.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the clock used for timing and retry delays.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// NewManager validates cfg and returns a Manager. No connection is opened.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	cfg = cfg.withDefaults()
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		poolCfg: pc,
		backend: observe.Backend{
			Name:   Name,
			System: "postgresql",
			Target: net.JoinHostPort(pc.ConnConfig.Host, strconv.Itoa(int(pc.ConnConfig.Port))),
		},
		logger: observe.NopLogger(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithBackend(m.backend)
	return m, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Backend describes the server for telemetry.
func (m *Manager) Backend() observe.Backend {
	return m.backend
}

// Pool returns the shared pool, creating it on first use.
func (m *Manager) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return m.pool, nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, m.poolCfg.Copy())
	if err != nil {
		return nil, fmt.Errorf("database: create pool: %w", err)
	}
	m.pool = pool

	m.logger.Info(ctx, "database pool created",
		observe.F("max_conns", m.poolCfg.MaxConns),
		observe.F("max_conn_lifetime", m.cfg.MaxLifetime.String()),
		observe.F("application_name", m.cfg.ApplicationName),
	)
	return pool, nil
}

// Alive reports whether a pool handle can be obtained. It does not require a
// reachable server.
func (m *Manager) Alive(ctx context.Context) bool {
	if _, err := m.Pool(ctx); err != nil {
		m.logger.Error(ctx, "database pool unavailable", observe.Err(err))
		return false
	}
	return true
}

func (m *Manager) acquire(ctx context.Context) (*pgxpool.Conn, func(), error) {
	pool, err := m.Pool(ctx)
	if err != nil {
		return nil, nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Release, nil
}

// Acquire checks out a connection, runs fn with it and returns it to the
// pool on every exit path.
func (m *Manager) Acquire(ctx context.Context, fn func(context.Context, *pgxpool.Conn) error) error {
	return scoped.Run(ctx, m.acquire, fn)
}

// WithTx runs fn inside a transaction on a pooled connection. The
// transaction commits when fn returns nil and rolls back otherwise.
func (m *Manager) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return m.Acquire(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("database: begin: %w", err)
		}
		// No-op once committed.
		defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

		if err := fn(ctx, tx); err != nil {
			m.logger.Error(ctx, "database session error, rolling back", observe.Err(err))
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("database: commit: %w", err)
		}
		return nil
	})
}

// PoolStatus is a snapshot of pool counters.
type PoolStatus struct {
	AcquiredConns        int32 `json:"active_connections"`
	IdleConns            int32 `json:"idle_connections"`
	ConstructingConns    int32 `json:"constructing_connections"`
	TotalConns           int32 `json:"total_connections"`
	MaxConns             int32 `json:"max_connections"`
	AcquireCount         int64 `json:"acquire_count"`
	EmptyAcquireCount    int64 `json:"empty_acquire_count"`
	CanceledAcquireCount int64 `json:"canceled_acquire_count"`
}

// PoolStatus reports the pool counters. Before the pool exists only
// MaxConns is set.
func (m *Manager) PoolStatus() PoolStatus {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()

	if pool == nil {
		return PoolStatus{MaxConns: m.poolCfg.MaxConns}
	}

	s := pool.Stat()
	return PoolStatus{
		AcquiredConns:        s.AcquiredConns(),
		IdleConns:            s.IdleConns(),
		ConstructingConns:    s.ConstructingConns(),
		TotalConns:           s.TotalConns(),
		MaxConns:             s.MaxConns(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}

// Close disposes the pool. A later call to Pool creates a new one.
func (m *Manager) Close() {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.mu.Unlock()

	if pool == nil {
		return
	}
	pool.Close()
	m.logger.Info(context.Background(), "database pool closed")
}
