package database

import "errors"

var (
	// ErrUnexpectedResult indicates SELECT 1 returned something other than 1.
	ErrUnexpectedResult = errors.New("database: unexpected probe result")

	// ErrInvalidConfig indicates the pool configuration could not be built.
	ErrInvalidConfig = errors.New("database: invalid configuration")
)

// Error types reported by Availability.
const (
	ErrorTypeConnectivity = "connectivity"
	ErrorTypeDatabase     = "database"
	ErrorTypeSystem       = "system"
)
