package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/datahealth/health"
)

// NewCheckCmd creates the "check" subcommand.
func NewCheckCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe both backends once and print the summary as JSON",
		Long: `Probe PostgreSQL and Redis once and print the combined summary.

The exit code is 1 when the overall status is unhealthy. A degraded
summary (one backend down or slow) exits 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, version, false)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			summary := rt.svc.AllHealthStatus(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}

			if summary.Overall.Status == health.StatusUnhealthy {
				return exitError(exitUnhealthy, "overall status %s", summary.Overall.Status)
			}
			return nil
		},
	}
}
