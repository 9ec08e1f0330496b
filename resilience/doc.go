// Package resilience retries and bounds calls to backends.
//
// The package provides two patterns:
//
//   - Retry: re-runs a failed operation with a backoff between attempts.
//     The default policy waits initialDelay * 2^(attempt-1), with no jitter
//     and no cap, and treats every error as retryable.
//
//   - Timeout: ensures an operation completes within a time limit.
//
// Retry is always opt-in. Probes never retry on their own; callers that want
// to wait for a backend wrap the probe:
//
//	ok := resilience.WithRetry(ctx, func(ctx context.Context) error {
//	    return db.Ping(ctx)
//	}, 3, time.Second)
//
// The two compose through an Executor, timeout innermost:
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetryPolicy(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 5})),
//	    resilience.WithTimeout(5*time.Second),
//	)
package resilience
