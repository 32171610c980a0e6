package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/logger"
)

var outputFormat string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "leadctl",
	Short:         "Lead capture operations",
	Long:          `Operator CLI for schema migrations, the daily digest and the tenant directory.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text or json)")
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	zapLogger, err := logger.New(cfg.Log.Level, "console", "leadctl")
	if err != nil {
		return nil, nil, err
	}
	return cfg, zapLogger, nil
}
