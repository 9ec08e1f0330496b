package config

import "errors"

var (
	// ErrMissingDatabaseURL indicates DATABASE_URL is not set.
	ErrMissingDatabaseURL = errors.New("config: DATABASE_URL environment variable is required")

	// ErrMissingRedisURL indicates REDIS_URL is not set.
	ErrMissingRedisURL = errors.New("config: REDIS_URL environment variable is required")

	// ErrInvalidURL indicates a connection URL could not be parsed.
	ErrInvalidURL = errors.New("config: invalid connection URL")
)
