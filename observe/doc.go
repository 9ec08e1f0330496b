// Package observe provides the logging, tracing and metrics used around
// backend probes.
//
// Logger writes one JSON object per line and redacts credential-bearing
// fields. Observer owns the OpenTelemetry tracer and meter providers built
// from Config. Middleware instruments a health.Checker so every probe emits
// a "probe.<backend>" span, the probe.total, probe.errors and
// probe.duration_ms instruments, and a log line whose level follows the
// probe status.
package observe
