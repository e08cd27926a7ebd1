package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"targetsync/internal/sources"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotFound indicates that a named catalog target does not exist.
	ExitCodeNotFound = 2
	// ExitCodeReadOnly indicates that the configured source cannot be edited.
	ExitCodeReadOnly = 3
)

// Global flags shared by every subcommand.
var (
	// configPath is the directory holding config.yaml. Relative paths in the
	// file are resolved against it.
	configPath string

	// debug enables debug logging regardless of logging.level.
	debug bool

	// logFormat overrides logging.format ("text" or "json").
	logFormat string
)

// rootCmd represents the base command for the targetsync application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "targetsync",
	Short: "Keep catalog connector targets in sync with the metadata catalog",
	Long: `targetsync reconciles the targets a catalog connector serves against the
metadata catalog. It starts, restarts and stops a resource connector and a
worker for every catalog target, forwards catalog change events to the
workers, and keeps doing so as targets are added, changed or removed.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "targetsync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case sources.IsNotFound(err):
		return ExitCodeNotFound
	case errors.Is(err, sources.ErrReadOnly):
		return ExitCodeReadOnly
	default:
		return ExitCodeError
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default ~/.config/targetsync)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides logging.format)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReconcileCmd())
	rootCmd.AddCommand(newTargetsCmd())
}
