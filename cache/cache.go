package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrValueMismatch indicates a read returned something other than what
	// was written.
	ErrValueMismatch = errors.New("cache: value mismatch")

	// ErrStillPresent indicates a key survived its deletion.
	ErrStillPresent = errors.New("cache: key still present after delete")

	// ErrInvalidConfig indicates the client configuration could not be built.
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

// Cache is a byte-oriented key/value store with per-entry TTLs.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get should never error; it returns (nil, false) on miss.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. The effective TTL is decided
	// by the implementation's Policy; an effective TTL of zero stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// RoundTrip writes value under key, reads it back, deletes it and verifies
// the deletion.
func RoundTrip(ctx context.Context, c Cache, key string, value []byte, ttl time.Duration) error {
	if c == nil {
		return ErrNilCache
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	got, ok := c.Get(ctx, key)
	if !ok || string(got) != string(value) {
		return fmt.Errorf("%w: expected %q, got %q", ErrValueMismatch, value, got)
	}

	if err := c.Delete(ctx, key); err != nil {
		return err
	}
	if _, ok := c.Get(ctx, key); ok {
		return fmt.Errorf("%w: %s", ErrStillPresent, key)
	}
	return nil
}
