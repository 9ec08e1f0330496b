package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWaitCmd creates the "wait" subcommand.
func NewWaitCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Block until both backends accept connections",
		Long: `Retry PostgreSQL and Redis with exponential backoff until both answer.

Attempts and the first delay come from --retry-max-attempts and
--retry-initial-delay; the delay doubles after every failure. Exits 1 when
either backend never answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, version, false)
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if !rt.svc.WaitReady(cmd.Context()) {
				return exitError(exitUnhealthy, "backends not ready after %d attempts", rt.cfg.Retry.MaxAttempts)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ready")
			return nil
		},
	}
}
