package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/datahealth/resilience"
)

func ExampleWithRetry() {
	ctx := context.Background()
	calls := 0

	ok := resilience.WithRetry(ctx, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 3, time.Millisecond)

	fmt.Printf("ok=%v after %d calls\n", ok, calls)
	// Output:
	// ok=true after 3 calls
}

func ExampleNewRetry() {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
	})

	ctx := context.Background()
	attempts := 0

	err := retry.Execute(ctx, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})

	if err == nil {
		fmt.Printf("Succeeded after %d attempts\n", attempts)
	}
	// Output:
	// Succeeded after 3 attempts
}

func ExampleNewRetry_withCallback() {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			fmt.Printf("Attempt %d failed (%v), retrying in %v\n", attempt, err, delay)
		},
	})

	err := retry.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("database unavailable")
	})

	fmt.Println("Gave up:", errors.Is(err, resilience.ErrMaxRetriesExceeded))
	// Output:
	// Attempt 1 failed (database unavailable), retrying in 1ms
	// Attempt 2 failed (database unavailable), retrying in 2ms
	// Gave up: true
}

func ExampleNewTimeout() {
	timeout := resilience.NewTimeout(resilience.TimeoutConfig{
		Timeout: 100 * time.Millisecond,
	})

	ctx := context.Background()

	err := timeout.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	fmt.Println("Fast operation error:", err)

	err = timeout.Execute(ctx, func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	fmt.Println("Slow operation timed out:", errors.Is(err, resilience.ErrTimeout))
	// Output:
	// Fast operation error: <nil>
	// Slow operation timed out: true
}

func ExampleNewExecutor() {
	executor := resilience.NewExecutor(
		resilience.WithRetryPolicy(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Millisecond,
		})),
		resilience.WithTimeout(time.Second),
	)

	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	fmt.Println("Executor succeeded:", err == nil)
	// Output:
	// Executor succeeded: true
}
