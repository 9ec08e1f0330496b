package health

import (
	"context"
	"testing"
	"time"
)

// BenchmarkProbe measures the overhead of a probe around a trivial round trip.
func BenchmarkProbe(b *testing.B) {
	ctx := context.Background()
	fn := func(ctx context.Context) (map[string]any, error) { return nil, nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Probe(ctx, ProbeConfig{}, fn)
	}
}

// BenchmarkAggregator_CheckAll_Sequential measures sequential check aggregation.
func BenchmarkAggregator_CheckAll_Sequential(b *testing.B) {
	agg := NewAggregator(AggregatorConfig{
		Timeout:  10 * time.Second,
		Parallel: false,
	})
	agg.Register("postgres", constChecker("postgres", StatusHealthy))
	agg.Register("redis", constChecker("redis", StatusHealthy))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = agg.CheckAll(ctx)
	}
}

// BenchmarkAggregator_CheckAll_Parallel measures parallel check aggregation.
func BenchmarkAggregator_CheckAll_Parallel(b *testing.B) {
	agg := NewAggregator()
	agg.Register("postgres", constChecker("postgres", StatusHealthy))
	agg.Register("redis", constChecker("redis", StatusHealthy))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = agg.CheckAll(ctx)
	}
}

// BenchmarkSummarize measures summary construction.
func BenchmarkSummarize(b *testing.B) {
	results := map[string]Result{
		"postgres": Healthy("ok"),
		"redis":    Degraded("slow"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Summarize(results)
	}
}
