package health

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// Parallel runs health checks in parallel when true.
	// Default: true
	Parallel bool
}

// Reporter produces a combined health summary.
type Reporter interface {
	Report(ctx context.Context) Summary
}

// Aggregator combines multiple health checkers into a single composite check.
type Aggregator struct {
	config   AggregatorConfig
	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{
		Timeout:  10 * time.Second,
		Parallel: true,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}

	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
		order:    make([]string, 0),
	}
}

// Register adds a health checker to the aggregator.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// CheckerNames returns the names of all registered checkers.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	return a.runCheck(ctx, checker), nil
}

// CheckAll runs all registered health checks and returns the results.
// Every check runs independently; one failing backend never hides another.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make(map[string]Checker, len(a.checkers))
	for name, checker := range a.checkers {
		checkers[name] = checker
	}
	a.mu.RUnlock()

	if len(checkers) == 0 {
		return make(map[string]Result)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(checkers))

	if a.config.Parallel {
		var g errgroup.Group
		var mu sync.Mutex

		for name, checker := range checkers {
			g.Go(func() error {
				result := a.runCheck(ctx, checker)
				mu.Lock()
				results[name] = result
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()
	} else {
		for name, checker := range checkers {
			results[name] = a.runCheck(ctx, checker)
		}
	}

	return results
}

// OverallStatus computes the overall health status from a set of results.
// Returns Healthy if every check is healthy (or there are none).
// Returns Unhealthy if no check is healthy and all share one status, so
// every backend down or every backend slow.
// Returns Degraded otherwise.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	return OverallStatus(results)
}

// OverallStatus is the aggregation rule used by Aggregator.
func OverallStatus(results map[string]Result) Status {
	if len(results) == 0 {
		return StatusHealthy
	}

	healthy, degraded, unhealthy := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case StatusHealthy:
			healthy++
		case StatusDegraded:
			degraded++
		default:
			unhealthy++
		}
	}

	switch {
	case healthy == len(results):
		return StatusHealthy
	case unhealthy == len(results), degraded == len(results):
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}

// Report runs every check and summarizes the outcome.
func (a *Aggregator) Report(ctx context.Context) Summary {
	return Summarize(a.CheckAll(ctx))
}

func (a *Aggregator) runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()

	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		if result.Duration <= 0 {
			result.Duration = time.Since(start)
		}
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		result := Unhealthy("check timed out", ErrCheckTimeout).WithDuration(time.Since(start))
		result.Timestamp = start
		return result
	}
}

// Overall is the combined status of all backends.
type Overall struct {
	Status          Status `json:"status"`
	HealthyServices int    `json:"healthy_services"`
	TotalServices   int    `json:"total_services"`
}

// Summary is the combined health report. It serializes as one record per
// backend keyed by name, plus an "overall" entry.
type Summary struct {
	Checks    map[string]Record
	Overall   Overall
	Timestamp time.Time
}

// Summarize builds a Summary from individual results.
func Summarize(results map[string]Result) Summary {
	s := Summary{
		Checks:    make(map[string]Record, len(results)),
		Timestamp: time.Now().UTC(),
		Overall: Overall{
			Status:        OverallStatus(results),
			TotalServices: len(results),
		},
	}
	for name, result := range results {
		s.Checks[name] = result.Record()
		if result.Status == StatusHealthy {
			s.Overall.HealthyServices++
		}
	}
	return s
}

// MarshalJSON flattens the per-backend records next to "overall".
func (s Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Checks)+2)
	for name, rec := range s.Checks {
		out[name] = rec
	}
	out["overall"] = s.Overall
	out["timestamp"] = s.Timestamp.Format(time.RFC3339)
	return json.Marshal(out)
}
