package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"targetsync/internal/app"
	"targetsync/internal/formatting"
	"targetsync/internal/registry"
)

func newReconcileCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a single reconciliation sweep and print the result",
		Long: `Runs one reconciliation sweep against the configured target source,
refreshes every started worker once, prints the outcome and stops all
resource connectors again. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseOutputFormat(output)
			if err != nil {
				return err
			}

			cfg := app.NewConfig(debug, logFormat, configPath)
			cfg.LogOutput = cmd.ErrOrStderr()
			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			report, err := application.ReconcileOnce(ctx)
			if err != nil {
				return err
			}

			summary := formatting.SweepSummary{
				Processed:  report.Result.Processed,
				Created:    report.Result.Created,
				Updated:    report.Result.Updated,
				Unchanged:  report.Result.Unchanged,
				Removed:    report.Result.Removed,
				Failed:     report.Result.Failed,
				Duplicates: report.Result.Duplicates,
				Refreshed:  report.Refresh.Refreshed,
				Duration:   report.Result.Duration.String(),
			}
			f := formatting.New(formatting.Options{Format: format, Color: isTerminal(cmd)}, cmd.OutOrStdout())
			return f.FormatSweep(summary, registryRows(report.Targets))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}

func registryRows(recs []*registry.RequestedTarget) []formatting.TargetRow {
	rows := make([]formatting.TargetRow, 0, len(recs))
	for _, rec := range recs {
		started := rec.Started()
		events := rec.SupportsEvents
		rows = append(rows, formatting.TargetRow{
			RelationshipID:           rec.RelationshipID,
			Name:                     rec.Name(),
			ElementType:              rec.TargetElementType,
			ElementID:                rec.TargetElementID,
			VersionStamp:             rec.VersionStamp,
			PermittedSynchronization: string(rec.EffectivePermittedSynchronization),
			Kind:                     rec.Kind,
			Started:                  &started,
			Events:                   &events,
		})
	}
	return rows
}
