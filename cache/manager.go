package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/datahealth/observe"
	"github.com/jonwraymond/datahealth/scoped"
)

// Name is the checker name of the Redis backend.
const Name = "redis"

// Manager owns the process-wide Redis client.
//
// Contract:
//   - Concurrency: safe for concurrent use; the client is created at most
//     once between Close calls.
//   - Ownership: callers never close the client returned by Client; use Close.
type Manager struct {
	cfg     Config
	opts    *redis.Options
	backend observe.Backend
	logger  observe.Logger
	clock   clockwork.Clock

	mu     sync.Mutex
	client *redis.Client
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

// WithClock sets the clock used for timing.
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
	ro, err := cfg.clientOptions()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:  cfg,
		opts: ro,
		backend: observe.Backend{
			Name:   Name,
			System: "redis",
			Target: ro.Addr,
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

// Client returns the shared client, creating it on first use.
func (m *Manager) Client(ctx context.Context) (*redis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	opts := *m.opts
	m.client = redis.NewClient(&opts)

	m.logger.Info(ctx, "redis client created",
		observe.F("pool_size", opts.PoolSize),
		observe.F("timeout", m.cfg.Timeout.String()),
	)
	return m.client, nil
}

// Cache returns a RedisCache on the shared client using the configured
// policy.
func (m *Manager) Cache(ctx context.Context) (*RedisCache, error) {
	client, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return NewRedisCache(client, *m.cfg.Policy), nil
}

func (m *Manager) acquire(ctx context.Context) (*redis.Conn, func(), error) {
	client, err := m.Client(ctx)
	if err != nil {
		return nil, nil, err
	}
	conn := client.Conn()
	return conn, func() { _ = conn.Close() }, nil
}

// Acquire checks out a dedicated connection, runs fn with it and returns it
// to the pool on every exit path.
func (m *Manager) Acquire(ctx context.Context, fn func(context.Context, *redis.Conn) error) error {
	err := scoped.Run(ctx, m.acquire, fn)
	if err != nil {
		m.logger.Debug(ctx, "redis session error", observe.Err(err))
	}
	return err
}

// PoolStatus is a snapshot of client pool counters.
type PoolStatus struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_connections"`
	IdleConns  uint32 `json:"idle_connections"`
	StaleConns uint32 `json:"stale_connections"`
	MaxConns   int    `json:"max_connections"`
}

// PoolStatus reports the client pool counters. Before the client exists
// only MaxConns is set.
func (m *Manager) PoolStatus() PoolStatus {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	out := PoolStatus{MaxConns: m.opts.PoolSize}
	if client == nil {
		return out
	}
	s := client.PoolStats()
	out.Hits = s.Hits
	out.Misses = s.Misses
	out.Timeouts = s.Timeouts
	out.TotalConns = s.TotalConns
	out.IdleConns = s.IdleConns
	out.StaleConns = s.StaleConns
	return out
}

// Close closes the client. A later call to Client creates a new one.
func (m *Manager) Close() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("cache: close: %w", err)
	}
	m.logger.Info(context.Background(), "redis client closed")
	return nil
}
