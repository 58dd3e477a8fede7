package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scituinsk/BE-Smart-Farming/internal/config"
	"github.com/scituinsk/BE-Smart-Farming/internal/service/server"
	"github.com/scituinsk/BE-Smart-Farming/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for running the farming server.
	rootCmd = &cobra.Command{
		Use:   "farming-server [listen-address]",
		Short: "Run the smart-farming backend server.",
		Long: `Starts the smart-farming backend: the REST and websocket API, the
alarm scheduler with its task queue workers and due-alarm sweep, and the
MQTT device bridge when a broker is configured.

The server listens on the address from the configuration file; a listen
address argument overrides it (e.g. :9000, 0.0.0.0:8000).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the farming-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
}
