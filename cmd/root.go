// Package cmd defines the CLI commands for the gua4destiny executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neoluxis/gua4destiny/internal/config"
	"github.com/neoluxis/gua4destiny/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gua4destiny",
		Short: "Yarrow-stalk divination with canonical reference text retrieval",
		Long: `gua4destiny casts hexagrams with the yarrow-stalk procedure and
retrieves their canonical reference text from public web sources,
with priority fallback, retry/backoff and a local cache.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); defaults apply when omitted")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCastCmd())
	cmd.AddCommand(newTextCmd())

	return cmd
}

// loadEnvironment builds the config and logger shared by all commands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
