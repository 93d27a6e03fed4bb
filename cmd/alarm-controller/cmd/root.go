package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-controller/internal/config"
	"github.com/oshokin/alarm-controller/internal/service/controller"
	"github.com/oshokin/alarm-controller/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where the controller state is persisted.
	stateFile string
	// logLevel overrides the configured logging level.
	logLevel string

	// rootCmd represents the base command for running the alarm controller.
	rootCmd = &cobra.Command{
		Use:   "alarm-controller",
		Short: "Run the alarm controller daemon.",
		Long: `Starts the alarm controller that holds the armed/disarmed/tripped status
of the premises and reacts to keypad and named-pipe input.

The keypad password, the pipe secret table and all paths come from the
configuration file. The current state is persisted to a JSON file and restored
on the next start, so a restart does not disarm the system.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &controller.Options{
				ConfigPath: configPath,
				StateFile:  stateFile,
				LogLevel:   logLevel,
			}

			return controller.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-controller CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist controller state (defaults to config value)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "logging level (debug, info, warn, error)")
}
