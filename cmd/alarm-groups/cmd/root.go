package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-groups/internal/config"
	"github.com/oshokin/alarm-groups/internal/service/alarms"
	"github.com/oshokin/alarm-groups/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// metricsAddress overrides the configured Prometheus endpoint.
	metricsAddress string

	// rootCmd represents the base command for running the alarm pool.
	rootCmd = &cobra.Command{
		Use:   "alarm-groups",
		Short: "Run recurring alarms rendered by one display worker per group.",
		Long: `Starts an interactive prompt for recurring alarms.

Every alarm belongs to a group. A display worker is started for each group
that has alarms and prints the group's active alarms, each paced by its own
interval. A worker is retired once its group has no alarms left.

Type Help at the prompt for the list of commands.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &alarms.Options{
				ConfigPath:     configPath,
				LogLevel:       logLevel,
				MetricsAddress: metricsAddress,
			}

			return alarms.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-groups CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&metricsAddress, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
}
