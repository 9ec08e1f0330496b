package database

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/health"
)

// DefaultApplicationName is reported to the server as application_name.
const DefaultApplicationName = "temperature_display_app"

// Config configures the PostgreSQL pool and its probes.
type Config struct {
	// URL is the connection string (required).
	URL string

	// PoolSize is the number of connections the pool expects to keep busy.
	// Default: 10
	PoolSize int

	// MaxOverflow is the number of extra connections allowed under load.
	// Zero selects the default; a negative value disables overflow.
	// Default: 20
	MaxOverflow int

	// MaxLifetime recycles connections older than this.
	// Default: 1 hour
	MaxLifetime time.Duration

	// ConnectTimeout bounds establishing a single connection.
	// Default: 5 seconds
	ConnectTimeout time.Duration

	// HealthCheckPeriod is how often idle connections are checked.
	// Default: 30 seconds
	HealthCheckPeriod time.Duration

	// ApplicationName is sent as the application_name runtime parameter.
	// Default: temperature_display_app
	ApplicationName string

	// LatencyTarget separates healthy from degraded probes.
	// Default: 2 seconds
	LatencyTarget time.Duration

	// ProbeTimeout bounds a single probe.
	// Default: 5 seconds
	ProbeTimeout time.Duration
}

// ConfigFrom extracts the database settings from the process configuration.
// The loader has already applied defaults, so a zero overflow there is an
// explicit request for none.
func ConfigFrom(c *config.Config) Config {
	overflow := c.Database.MaxOverflow
	if overflow == 0 {
		overflow = -1
	}
	return Config{
		URL:               c.DatabaseURL,
		PoolSize:          c.Database.PoolSize,
		MaxOverflow:       overflow,
		MaxLifetime:       c.Database.MaxLifetime,
		ConnectTimeout:    c.Database.ConnectTimeout,
		HealthCheckPeriod: c.Database.HealthCheckPeriod,
		ApplicationName:   c.Database.ApplicationName,
		LatencyTarget:     c.Health.LatencyTarget,
		ProbeTimeout:      c.Health.ProbeTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	switch {
	case c.MaxOverflow == 0:
		c.MaxOverflow = 20
	case c.MaxOverflow < 0:
		c.MaxOverflow = 0
	}
	if c.MaxLifetime <= 0 {
		c.MaxLifetime = time.Hour
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = 30 * time.Second
	}
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultApplicationName
	}
	if c.LatencyTarget <= 0 {
		c.LatencyTarget = health.DefaultLatencyTarget
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = health.DefaultProbeTimeout
	}
	return c
}

// MaxConns is the hard ceiling on open connections.
func (c Config) MaxConns() int32 {
	return int32(c.PoolSize + c.MaxOverflow)
}

// poolConfig parses the URL and applies the pool settings. It performs no
// network activity.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("database: %w", config.ErrMissingDatabaseURL)
	}
	url, err := config.NormalizeURL(c.URL)
	if err != nil {
		return nil, err
	}

	pc, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, config.Redact(url), err)
	}

	pc.MaxConns = c.MaxConns()
	pc.MinConns = 0
	pc.MaxConnLifetime = c.MaxLifetime
	pc.HealthCheckPeriod = c.HealthCheckPeriod
	pc.ConnConfig.ConnectTimeout = c.ConnectTimeout
	if pc.ConnConfig.RuntimeParams == nil {
		pc.ConnConfig.RuntimeParams = make(map[string]string)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = c.ApplicationName

	return pc, nil
}
