// Command estated runs the estate marketplace backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"estate-marketplace-backend/config"
	"estate-marketplace-backend/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var flagConfig string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "estated",
		Short:         "Estate marketplace backend",
		Long:          "REST API, event stream and web push for the estate marketplace.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml" // Default path for local development
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultPath, "path to the YAML configuration")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads .env and the YAML file, then installs the logger.
func loadConfig() (*config.Config, error) {
	config.LoadEnv()
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", flagConfig, err)
	}
	logging.Setup(cfg.Log.Format, cfg.Log.Level)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
