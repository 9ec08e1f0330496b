// Package health provides health records, latency classification and
// aggregation for the PostgreSQL and Redis backends.
//
// A probe issues one trivial round trip to a backend, measures how long it
// took and classifies the outcome into one of three states:
//
//   - Healthy: the round trip completed within the latency target.
//   - Degraded: the round trip completed but exceeded the latency target.
//   - Unhealthy: the round trip failed or timed out.
//
// # Probing
//
//	result := health.Probe(ctx, health.ProbeConfig{
//	    Timeout:       5 * time.Second,
//	    LatencyTarget: health.DefaultLatencyTarget,
//	}, func(ctx context.Context) (map[string]any, error) {
//	    return nil, pool.Ping(ctx)
//	})
//
// # Aggregating
//
// An Aggregator combines the per-backend checkers. The overall status is
// healthy when every backend is healthy, unhealthy when no backend is
// healthy and all share one status, and degraded otherwise:
//
//	agg := health.NewAggregator()
//	agg.Register("postgres", dbManager)
//	agg.Register("redis", cacheManager)
//
//	summary := agg.Report(ctx)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg, health.Routes{})
package health
