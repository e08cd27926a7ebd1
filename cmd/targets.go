package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"targetsync/internal/catalog"
	"targetsync/internal/config"
	"targetsync/internal/formatting"
	"targetsync/internal/sources"
	"targetsync/pkg/logging"
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List and edit the catalog targets of the configured source",
		Long: `Lists the catalog targets held by the configured target source, and adds,
changes or removes them for the file and sqlite sources. Kubernetes targets
are ConfigMaps and are edited with kubectl.

A running connector picks up edits on its next sweep.`,
	}
	cmd.AddCommand(newTargetsListCmd(), newTargetsAddCmd(), newTargetsRemoveCmd())
	return cmd
}

// loadSettings loads config.yaml for commands that do not start a connector.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(level, format, cmd.ErrOrStderr())

	path := configPath
	if path == "" {
		if path, err = config.GetDefaultConfigPath(); err != nil {
			return config.Config{}, err
		}
	}
	return config.LoadConfig(path)
}

func newTargetsListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			set, err := sources.Open(settings.Source)
			if err != nil {
				return err
			}
			defer set.Close()

			var targets []catalog.TargetDescriptor
			pageSize := settings.Connector.PageSize
			if pageSize <= 0 {
				pageSize = config.DefaultPageSize
			}
			for offset := 0; ; {
				page, err := set.Targets.List(cmd.Context(), offset, pageSize)
				if err != nil {
					return err
				}
				if len(page) == 0 {
					break
				}
				targets = append(targets, page...)
				offset += len(page)
			}

			rows := make([]formatting.TargetRow, 0, len(targets))
			for _, d := range targets {
				rows = append(rows, descriptorRow(d))
			}
			f := formatting.New(formatting.Options{Format: format, Color: isTerminal(cmd)}, cmd.OutOrStdout())
			return f.FormatTargets(rows)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}

func newTargetsAddCmd() *cobra.Command {
	var (
		desc     catalog.TargetDescriptor
		sync     string
		settings map[string]string
	)

	cmd := &cobra.Command{
		Use:   "add RELATIONSHIP_ID",
		Short: "Add or replace a catalog target",
		Example: `  targetsync targets add rel-orders --name orders --element-id elem-17 \
    --element-type table --set schema=sales`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			admin, closeAdmin, err := sources.OpenAdmin(cfg.Source)
			if err != nil {
				return err
			}
			defer closeAdmin()

			desc.RelationshipID = args[0]
			desc.PermittedSynchronization = catalog.PermittedSynchronization(sync)
			if len(settings) > 0 {
				desc.ConfigurationProperties = make(map[string]any, len(settings))
				for k, v := range settings {
					desc.ConfigurationProperties[k] = v
				}
			}

			stored, err := admin.Upsert(cmd.Context(), desc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored target %s (version %s)\n", stored.RelationshipID, stored.VersionStamp)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&desc.TargetName, "name", "", "Display name of the target")
	flags.StringVar(&desc.TargetElementID, "element-id", "", "Catalog element id")
	flags.StringVar(&desc.TargetElementType, "element-type", "", "Catalog element type, selects the worker kind")
	flags.StringVar(&desc.MetadataSourceQualifiedName, "metadata-source", "", "Qualified name of the metadata source")
	flags.StringVar(&sync, "sync", "", "Permitted synchronization: "+strings.Join(syncValues(), ", "))
	flags.StringToStringVar(&settings, "set", nil, "Configuration property key=value (repeatable)")
	return cmd
}

func newTargetsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove RELATIONSHIP_ID",
		Aliases: []string{"rm"},
		Short:   "Remove a catalog target",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			admin, closeAdmin, err := sources.OpenAdmin(cfg.Source)
			if err != nil {
				return err
			}
			defer closeAdmin()

			if err := admin.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed target %s\n", args[0])
			return nil
		},
	}
}

func descriptorRow(d catalog.TargetDescriptor) formatting.TargetRow {
	return formatting.TargetRow{
		RelationshipID:           d.RelationshipID,
		Name:                     d.Name(),
		ElementType:              d.TargetElementType,
		ElementID:                d.TargetElementID,
		VersionStamp:             d.VersionStamp,
		PermittedSynchronization: string(d.PermittedSynchronization),
	}
}

func syncValues() []string {
	return []string{
		string(catalog.SyncBothDirections),
		string(catalog.SyncToThirdParty),
		string(catalog.SyncFromThirdParty),
		string(catalog.SyncNone),
	}
}
