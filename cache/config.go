package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/health"
)

// Config configures the Redis client and its probes.
type Config struct {
	// URL is the connection string (required), e.g. redis://:pass@host:6379/0.
	URL string

	// PoolSize is the maximum number of pooled connections.
	// Default: 20
	PoolSize int

	// Timeout bounds dialing, reads and writes.
	// Default: 5 seconds
	Timeout time.Duration

	// MaxRetries is how often a command is retried after a network error
	// or timeout. A negative value disables retries.
	// Default: 3
	MaxRetries int

	// LatencyTarget separates healthy from degraded probes.
	// Default: 2 seconds
	LatencyTarget time.Duration

	// ProbeTimeout bounds a single probe.
	// Default: 5 seconds
	ProbeTimeout time.Duration

	// Policy governs TTLs of the RedisCache returned by Manager.Cache.
	// Default: DefaultPolicy()
	Policy *Policy
}

// ConfigFrom extracts the Redis settings from the process configuration.
func ConfigFrom(c *config.Config) Config {
	return Config{
		URL:           c.RedisURL,
		PoolSize:      c.Redis.PoolSize,
		Timeout:       c.Redis.Timeout,
		MaxRetries:    c.Redis.MaxRetries,
		LatencyTarget: c.Health.LatencyTarget,
		ProbeTimeout:  c.Health.ProbeTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 20
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.LatencyTarget <= 0 {
		c.LatencyTarget = health.DefaultLatencyTarget
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = health.DefaultProbeTimeout
	}
	if c.Policy == nil {
		p := DefaultPolicy()
		c.Policy = &p
	}
	return c
}

// clientOptions parses the URL and applies the pool settings. It performs
// no network activity.
func (c Config) clientOptions() (*redis.Options, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("cache: %w", config.ErrMissingRedisURL)
	}
	url, err := config.NormalizeURL(c.URL)
	if err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, config.Redact(url), err)
	}

	opts.PoolSize = c.PoolSize
	opts.DialTimeout = c.Timeout
	opts.ReadTimeout = c.Timeout
	opts.WriteTimeout = c.Timeout
	opts.MaxRetries = c.MaxRetries
	return opts, nil
}
