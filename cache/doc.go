// Package cache manages the process-wide Redis client and the probes run
// against it.
//
// A Manager owns at most one redis.Client, created lazily and disposed by
// Close. Acquire checks out a dedicated connection for the duration of a
// function and returns it to the pool on every exit path.
//
// The Cache interface is the byte-oriented key/value contract the rest of
// the application uses. RedisCache implements it on top of the shared client
// with TTLs governed by a Policy.
package cache
