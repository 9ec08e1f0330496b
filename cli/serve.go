package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/observe"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the health endpoints over HTTP",
		Long: `Serve liveness, readiness, detailed health and Prometheus metrics.

  /healthz   liveness
  /readyz    readiness (PostgreSQL healthy or degraded)
  /health    combined summary; /health/postgres and /health/redis per backend
  /metrics   Prometheus scrape

Set AUTH_API_KEYS or AUTH_JWT_SECRET to protect everything under /health.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, version)
		},
	}

	f := cmd.Flags()
	f.String(config.KeyListenAddr, ":8080", "Listen address")
	f.String(config.KeyMetricsExporter, "prometheus", "Metrics exporter (prometheus, otlp, stdout, none)")
	f.String(config.KeyTracingExporter, "none", "Tracing exporter (otlp, stdout, none)")
	f.Bool("wait", false, "Wait for both backends before listening")
	f.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown bound")
	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	waitFirst, _ := cmd.Flags().GetBool("wait")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	rt, err := setup(cmd, version, true)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())
	logger := rt.obs.Logger()

	if waitFirst && !rt.svc.WaitReady(ctx) {
		return exitError(exitUnhealthy, "backends not ready")
	}

	ln, err := net.Listen("tcp", rt.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", rt.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           rt.svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info(ctx, "listening", observe.F("addr", ln.Addr().String()))
	fmt.Fprintf(cmd.OutOrStdout(), "datahealth listening on %s\n", ln.Addr())

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}
