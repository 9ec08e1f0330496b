package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/datahealth/auth"
	"github.com/jonwraymond/datahealth/cache"
	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/database"
	"github.com/jonwraymond/datahealth/health"
	"github.com/jonwraymond/datahealth/observe"
)

var (
	// ErrNilBackend indicates New was given a nil manager.
	ErrNilBackend = errors.New("service: backend manager is nil")

	// ErrNilConfig indicates Open was given no configuration.
	ErrNilConfig = errors.New("service: config is nil")
)

// Service is the combined health facade over both backends.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent AllHealthStatus calls
//     share one round of probes.
//   - Ownership: Close closes both managers.
type Service struct {
	db    *database.Manager
	cache *cache.Manager
	agg   *health.Aggregator
	retry config.RetrySettings

	logger  observe.Logger
	auth    auth.Authenticator
	metrics http.Handler

	group singleflight.Group
}

type options struct {
	logger     observe.Logger
	middleware *observe.Middleware
	auth       auth.Authenticator
	authSet    bool
	metrics    http.Handler
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the logger. Default: no logging.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMiddleware instruments every probe. Default: uninstrumented.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) { o.middleware = mw }
}

// WithAuthenticator protects the detailed endpoints with a. It overrides the
// authenticator built from the configuration; nil leaves them open.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(o *options) {
		o.auth = a
		o.authSet = true
	}
}

// WithMetricsHandler replaces the /metrics handler. Default: promhttp.Handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observe.NopLogger()
	}
	if o.middleware == nil {
		o.middleware = observe.NewMiddleware(nil, nil, o.logger)
	}
	if o.metrics == nil {
		o.metrics = promhttp.Handler()
	}
	return o
}

// New wires db and c into a Service. A nil cfg uses the default retry policy
// and no authentication.
func New(cfg *config.Config, db *database.Manager, c *cache.Manager, opts ...Option) (*Service, error) {
	if db == nil || c == nil {
		return nil, ErrNilBackend
	}
	return newService(cfg, db, c, collect(opts)), nil
}

// Open builds both managers from cfg and wires them into a Service. No
// connection is opened.
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	o := collect(opts)

	db, err := database.NewManager(database.ConfigFrom(cfg), database.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	c, err := cache.NewManager(cache.ConfigFrom(cfg), cache.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	return newService(cfg, db, c, o), nil
}

func newService(cfg *config.Config, db *database.Manager, c *cache.Manager, o options) *Service {
	s := &Service{
		db:      db,
		cache:   c,
		agg:     health.NewAggregator(),
		retry:   config.RetrySettings{MaxAttempts: 3, InitialDelay: time.Second},
		logger:  o.logger,
		auth:    o.auth,
		metrics: o.metrics,
	}
	if cfg != nil {
		s.retry = cfg.Retry
		if !o.authSet {
			s.auth = auth.FromSettings(cfg.Auth, nil)
		}
	}

	s.agg.Register(database.Name, o.middleware.Checker(db.Backend(), db))
	s.agg.Register(cache.Name, o.middleware.Checker(c.Backend(), c))
	return s
}

// Database returns the PostgreSQL manager.
func (s *Service) Database() *database.Manager {
	return s.db
}

// Cache returns the Redis manager.
func (s *Service) Cache() *cache.Manager {
	return s.cache
}

// Aggregator returns the aggregator holding both checkers.
func (s *Service) Aggregator() *health.Aggregator {
	return s.agg
}

// AllHealthStatus probes both backends concurrently and summarizes them.
// Callers arriving while a round is in flight receive its result. A round
// is not cancelled by any single caller; the aggregator timeout bounds it.
// A caller whose context ends first gets every check reported unhealthy
// while the round finishes for the others.
func (s *Service) AllHealthStatus(ctx context.Context) health.Summary {
	ch := s.group.DoChan("all", func() (any, error) {
		return s.agg.Report(context.WithoutCancel(ctx)), nil
	})
	select {
	case r := <-ch:
		return r.Val.(health.Summary)
	case <-ctx.Done():
		err := fmt.Errorf("%w: %w", health.ErrCheckTimeout, ctx.Err())
		names := s.agg.CheckerNames()
		results := make(map[string]health.Result, len(names))
		for _, name := range names {
			results[name] = health.Unhealthy("check timed out", err)
		}
		return health.Summarize(results)
	}
}

// Report implements health.Reporter.
func (s *Service) Report(ctx context.Context) health.Summary {
	return s.AllHealthStatus(ctx)
}

// ReadinessProbe reports whether PostgreSQL is healthy or degraded.
func (s *Service) ReadinessProbe(ctx context.Context) bool {
	result, err := s.agg.Check(ctx, database.Name)
	if err != nil {
		return false
	}
	ready := result.Status != health.StatusUnhealthy
	if !ready {
		s.logger.Warn(ctx, "readiness probe failed", observe.Err(result.Error))
	}
	return ready
}

// LivenessProbe reports whether the database manager can hand out its pool.
func (s *Service) LivenessProbe(ctx context.Context) bool {
	return s.db.Alive(ctx)
}

// WaitReady retries both backends concurrently with the configured policy
// and reports whether both answered.
func (s *Service) WaitReady(ctx context.Context) bool {
	errNotReady := errors.New("not ready")

	var g errgroup.Group
	g.Go(func() error {
		if !s.db.ConnectWithRetry(ctx, s.retry.MaxAttempts, s.retry.InitialDelay) {
			return fmt.Errorf("%s: %w", database.Name, errNotReady)
		}
		return nil
	})
	g.Go(func() error {
		if !s.cache.ConnectWithRetry(ctx, s.retry.MaxAttempts, s.retry.InitialDelay) {
			return fmt.Errorf("%s: %w", cache.Name, errNotReady)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "backends not ready", observe.Err(err))
		return false
	}
	s.logger.Info(ctx, "backends ready")
	return true
}

// Close closes both managers.
func (s *Service) Close() error {
	s.db.Close()
	return s.cache.Close()
}

var _ health.Reporter = (*Service)(nil)
