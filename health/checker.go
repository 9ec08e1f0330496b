package health

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Status represents the health status of a backend.
type Status int

const (
	// StatusHealthy indicates the backend answered within the latency target.
	StatusHealthy Status = iota
	// StatusDegraded indicates the backend answered, but slowly.
	StatusDegraded
	// StatusUnhealthy indicates the backend did not answer.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its label.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status label.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "healthy":
		*s = StatusHealthy
	case "degraded":
		*s = StatusDegraded
	case "unhealthy":
		*s = StatusUnhealthy
	default:
		return fmt.Errorf("health: unknown status %q", text)
	}
	return nil
}

// Result contains the outcome of a health check.
type Result struct {
	// Status is the health status.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Details holds backend-specific metrics (connection counts, sizes...).
	Details map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the check was performed.
	Timestamp time.Time

	// Error is the error if the check failed or was slow.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration sets the duration on a result.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// ResponseTimeMS returns the duration in milliseconds rounded to two
// decimals. It is never negative.
func (r Result) ResponseTimeMS() float64 {
	if r.Duration <= 0 {
		return 0
	}
	ms := float64(r.Duration) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

// Record is the fixed-shape health record served to operators.
type Record struct {
	Status         Status         `json:"status"`
	ResponseTimeMS float64        `json:"response_time_ms"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Record converts the result into its serializable record.
func (r Result) Record() Record {
	rec := Record{
		Status:         r.Status,
		ResponseTimeMS: r.ResponseTimeMS(),
		Metrics:        r.Details,
	}
	if r.Error != nil {
		rec.Error = r.Error.Error()
	}
	return rec
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
