package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonwraymond/datahealth/secret"
)

// Keys understood by Load. Each maps to the upper-cased environment variable.
const (
	KeyDatabaseURL         = "database-url"
	KeyRedisURL            = "redis-url"
	KeyDBPoolSize          = "db-pool-size"
	KeyDBMaxOverflow       = "db-max-overflow"
	KeyDBMaxLifetime       = "db-max-lifetime"
	KeyDBConnectTimeout    = "db-connect-timeout"
	KeyDBHealthCheckPeriod = "db-health-check-period"
	KeyDBApplicationName   = "db-application-name"
	KeyRedisPoolSize       = "redis-pool-size"
	KeyRedisTimeout        = "redis-timeout"
	KeyRedisMaxRetries     = "redis-max-retries"
	KeyLatencyTarget       = "health-latency-target"
	KeyProbeTimeout        = "health-probe-timeout"
	KeyRetryAttempts       = "retry-max-attempts"
	KeyRetryDelay          = "retry-initial-delay"
	KeyLogLevel            = "log-level"
	KeyListenAddr          = "listen-addr"
	KeyServiceName         = "service-name"
	KeyTracingExporter     = "tracing-exporter"
	KeyTracingSample       = "tracing-sample-pct"
	KeyMetricsExporter     = "metrics-exporter"
	KeyAPIKeys             = "auth-api-keys"
	KeyJWTSecret           = "auth-jwt-secret"
	KeySecretsDir          = "secrets-dir"
)

// Config is the resolved process configuration.
type Config struct {
	DatabaseURL string
	RedisURL    string

	Database  DatabaseSettings
	Redis     RedisSettings
	Health    HealthSettings
	Retry     RetrySettings
	Telemetry TelemetrySettings
	Auth      AuthSettings

	LogLevel   string
	ListenAddr string
}

// DatabaseSettings tunes the PostgreSQL pool.
type DatabaseSettings struct {
	PoolSize          int
	MaxOverflow       int
	MaxLifetime       time.Duration
	ConnectTimeout    time.Duration
	HealthCheckPeriod time.Duration
	ApplicationName   string
}

// MaxConns is the hard connection ceiling: the base pool plus overflow.
func (d DatabaseSettings) MaxConns() int {
	return d.PoolSize + d.MaxOverflow
}

// RedisSettings tunes the Redis client.
type RedisSettings struct {
	PoolSize   int
	Timeout    time.Duration
	MaxRetries int
}

// HealthSettings tunes probes.
type HealthSettings struct {
	LatencyTarget time.Duration
	ProbeTimeout  time.Duration
}

// RetrySettings tunes connection retry.
type RetrySettings struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// TelemetrySettings selects OpenTelemetry exporters.
type TelemetrySettings struct {
	ServiceName     string
	TracingExporter string
	TracingSample   float64
	MetricsExporter string
}

// AuthSettings protects the detailed health endpoints. Empty means open.
type AuthSettings struct {
	APIKeys   []string
	JWTSecret string
}

// Enabled reports whether any credential is configured.
func (a AuthSettings) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTSecret != ""
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPoolSize, 10)
	v.SetDefault(KeyDBMaxOverflow, 20)
	v.SetDefault(KeyDBMaxLifetime, time.Hour)
	v.SetDefault(KeyDBConnectTimeout, 5*time.Second)
	v.SetDefault(KeyDBHealthCheckPeriod, 30*time.Second)
	v.SetDefault(KeyDBApplicationName, "temperature_display_app")
	v.SetDefault(KeyRedisPoolSize, 20)
	v.SetDefault(KeyRedisTimeout, 5*time.Second)
	v.SetDefault(KeyRedisMaxRetries, 3)
	v.SetDefault(KeyLatencyTarget, 2*time.Second)
	v.SetDefault(KeyProbeTimeout, 5*time.Second)
	v.SetDefault(KeyRetryAttempts, 3)
	v.SetDefault(KeyRetryDelay, time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeyServiceName, "datahealth")
	v.SetDefault(KeyTracingExporter, "none")
	v.SetDefault(KeyTracingSample, 1.0)
	v.SetDefault(KeyMetricsExporter, "prometheus")
	v.SetDefault(KeySecretsDir, secret.DefaultSecretsDir)
}

type options struct {
	v        *viper.Viper
	flags    *pflag.FlagSet
	envFiles []string
	resolver *secret.Resolver
}

// Option configures Load.
type Option func(*options)

// WithViper reads values through v instead of a fresh instance.
func WithViper(v *viper.Viper) Option {
	return func(o *options) { o.v = v }
}

// WithFlags binds flags so explicitly set flags override the environment.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *options) { o.flags = fs }
}

// WithEnvFiles replaces the default .env and .env.local files.
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// WithResolver resolves values through r instead of the default registry.
func WithResolver(r *secret.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// Load reads and validates the configuration. It never touches the network;
// a missing DATABASE_URL or REDIS_URL is reported before any connection is
// attempted.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	o := options{envFiles: []string{".env", ".env.local"}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.v == nil {
		o.v = viper.New()
	}
	v := o.v

	// godotenv never overrides variables that are already set.
	for _, f := range o.envFiles {
		_ = godotenv.Load(f)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if o.flags != nil {
		if err := v.BindPFlags(o.flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if o.resolver == nil {
		r, err := secret.DefaultRegistry.NewResolver(true, map[string]map[string]any{
			"file": {"dir": v.GetString(KeySecretsDir)},
		})
		if err != nil {
			return nil, err
		}
		defer r.Close()
		o.resolver = r
	}

	get := func(key string) (string, error) {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			return "", nil
		}
		val, err := o.resolver.ResolveValue(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("config: resolve %s: %w", envName(key), err)
		}
		return val, nil
	}

	dbURL, err := get(KeyDatabaseURL)
	if err != nil {
		return nil, err
	}
	if dbURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if dbURL, err = NormalizeURL(dbURL); err != nil {
		return nil, err
	}

	redisURL, err := get(KeyRedisURL)
	if err != nil {
		return nil, err
	}
	if redisURL == "" {
		return nil, ErrMissingRedisURL
	}
	if redisURL, err = NormalizeURL(redisURL); err != nil {
		return nil, err
	}

	jwtSecret, err := get(KeyJWTSecret)
	if err != nil {
		return nil, err
	}
	var apiKeys []string
	for _, k := range strings.Split(v.GetString(KeyAPIKeys), ",") {
		k, err := o.resolver.ResolveValue(ctx, strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("config: resolve %s: %w", envName(KeyAPIKeys), err)
		}
		if k != "" {
			apiKeys = append(apiKeys, k)
		}
	}

	cfg := &Config{
		DatabaseURL: dbURL,
		RedisURL:    redisURL,
		Database: DatabaseSettings{
			PoolSize:          v.GetInt(KeyDBPoolSize),
			MaxOverflow:       v.GetInt(KeyDBMaxOverflow),
			MaxLifetime:       v.GetDuration(KeyDBMaxLifetime),
			ConnectTimeout:    v.GetDuration(KeyDBConnectTimeout),
			HealthCheckPeriod: v.GetDuration(KeyDBHealthCheckPeriod),
			ApplicationName:   v.GetString(KeyDBApplicationName),
		},
		Redis: RedisSettings{
			PoolSize:   v.GetInt(KeyRedisPoolSize),
			Timeout:    v.GetDuration(KeyRedisTimeout),
			MaxRetries: v.GetInt(KeyRedisMaxRetries),
		},
		Health: HealthSettings{
			LatencyTarget: v.GetDuration(KeyLatencyTarget),
			ProbeTimeout:  v.GetDuration(KeyProbeTimeout),
		},
		Retry: RetrySettings{
			MaxAttempts:  v.GetInt(KeyRetryAttempts),
			InitialDelay: v.GetDuration(KeyRetryDelay),
		},
		Telemetry: TelemetrySettings{
			ServiceName:     v.GetString(KeyServiceName),
			TracingExporter: v.GetString(KeyTracingExporter),
			TracingSample:   v.GetFloat64(KeyTracingSample),
			MetricsExporter: v.GetString(KeyMetricsExporter),
		},
		Auth: AuthSettings{
			APIKeys:   apiKeys,
			JWTSecret: jwtSecret,
		},
		LogLevel:   strings.ToLower(v.GetString(KeyLogLevel)),
		ListenAddr: v.GetString(KeyListenAddr),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Database.PoolSize < 1:
		return fmt.Errorf("config: %s must be at least 1", envName(KeyDBPoolSize))
	case c.Database.MaxOverflow < 0:
		return fmt.Errorf("config: %s must not be negative", envName(KeyDBMaxOverflow))
	case c.Redis.PoolSize < 1:
		return fmt.Errorf("config: %s must be at least 1", envName(KeyRedisPoolSize))
	case c.Health.LatencyTarget <= 0:
		return fmt.Errorf("config: %s must be positive", envName(KeyLatencyTarget))
	case c.Health.ProbeTimeout <= 0:
		return fmt.Errorf("config: %s must be positive", envName(KeyProbeTimeout))
	case c.Retry.MaxAttempts < 1:
		return fmt.Errorf("config: %s must be at least 1", envName(KeyRetryAttempts))
	case c.Retry.InitialDelay < 0:
		return fmt.Errorf("config: %s must not be negative", envName(KeyRetryDelay))
	}
	return nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
