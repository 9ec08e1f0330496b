package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/observe"
	"github.com/jonwraymond/datahealth/service"
)

// NewRootCmd builds the datahealth command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "datahealth",
		Short: "PostgreSQL and Redis health checks",
		Long: `datahealth probes the PostgreSQL database and the Redis cache an
application depends on and reports healthy, degraded or unhealthy for each.

Every flag can also be set through the environment variable of the same
name in upper case with dashes replaced by underscores (DATABASE_URL,
REDIS_URL, LOG_LEVEL...).`,
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("datahealth version %s\n", version))

	pf := root.PersistentFlags()
	pf.String(config.KeyDatabaseURL, "", "PostgreSQL connection URL")
	pf.String(config.KeyRedisURL, "", "Redis connection URL")
	pf.String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	pf.Duration(config.KeyLatencyTarget, 0, "Response time above which a backend is degraded (default 2s)")
	pf.Duration(config.KeyProbeTimeout, 0, "Upper bound of a single probe (default 5s)")
	pf.Int(config.KeyRetryAttempts, 0, "Connection attempts for wait (default 3)")
	pf.Duration(config.KeyRetryDelay, 0, "Delay before the second connection attempt (default 1s)")

	root.AddCommand(
		NewServeCmd(version),
		NewCheckCmd(version),
		NewWaitCmd(version),
		newVersionCmd(version),
	)
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datahealth version %s\n", version)
		},
	}
}

// runtime is what every command needs: resolved configuration, telemetry
// and the wired service.
type runtime struct {
	cfg *config.Config
	obs observe.Observer
	svc *service.Service
}

func (r *runtime) close(ctx context.Context) {
	_ = r.svc.Close()
	_ = r.obs.Shutdown(ctx)
}

// setup loads configuration from the command's flags and builds the service.
// Metric export is only enabled when scrapeMetrics is set, since one-shot
// commands have nothing to scrape.
func setup(cmd *cobra.Command, version string, scrapeMetrics bool) (*runtime, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx, config.WithFlags(cmd.Flags()))
	if err != nil {
		return nil, exitError(exitConfig, "configuration: %v", err)
	}

	tel := cfg.Telemetry
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: tel.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   tel.TracingExporter != "" && tel.TracingExporter != "none",
			Exporter:  tel.TracingExporter,
			SamplePct: tel.TracingSample,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  scrapeMetrics && tel.MetricsExporter != "" && tel.MetricsExporter != "none",
			Exporter: tel.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   cfg.LogLevel,
			Writer:  cmd.ErrOrStderr(),
		},
	})
	if err != nil {
		return nil, exitError(exitConfig, "telemetry: %v", err)
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	svc, err := service.Open(cfg,
		service.WithLogger(obs.Logger()),
		service.WithMiddleware(mw),
	)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, exitError(exitConfig, "configuration: %v", err)
	}
	return &runtime{cfg: cfg, obs: obs, svc: svc}, nil
}
