package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantsight/gexflow/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "gexflowd",
		Short: "Dealer gamma exposure analytics daemon",
		Long: `gexflowd polls an options-chain API, derives dealer gamma positioning
(per-strike exposure, regimes, magnets, pins, order flow, trade signals),
and serves the results over HTTP and WebSocket.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplayCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfigAndLogger is shared setup for both subcommands.
func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Logging.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	return cfg, logger, nil
}
