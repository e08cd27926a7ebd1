package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"targetsync/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the connector until interrupted",
		Long: `Runs the catalog connector in the foreground.

The connector performs a reconciliation sweep immediately and then every
connector.refreshInterval. After the first sweep it registers for catalog
change events when the target source supports them and the permitted
synchronization allows it.

A sweep can be requested at any time by sending SIGHUP, or with
POST /reconcile when metrics.address is set. With a refreshInterval of 0
these are the only sweeps after the initial one.

When metrics.address is set, Prometheus metrics are served on /metrics.
Under systemd (Type=notify) readiness and shutdown are reported via sd_notify.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(debug, logFormat, configPath)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
