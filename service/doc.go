// Package service combines the PostgreSQL and Redis managers into one
// health facade and serves it over HTTP.
//
// Readiness follows the database alone: the process is ready when
// PostgreSQL answers, even slowly. Redis only affects the overall status.
package service
