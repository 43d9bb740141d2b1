// Package cmd holds the arbitrage command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fd1az/graph-arbitrage/internal/config"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	configPath string
	paperMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "arbitrage",
	Short: "Currency graph arbitrage bot for Coinbase Exchange",
	Long: `arbitrage builds a bid/ask graph from a set of Coinbase products, looks
for the best conversion path from the currency it holds back to itself and
places a post-only limit order for the first hop when the round trip beats
the configured threshold.

Configuration comes from config.yaml, ARB_* environment variables and a
.env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()
		if paperMode {
			return os.Setenv("ARB_EXCHANGE_PROVIDER", config.ProviderPaper)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&paperMode, "paper", false, "trade against the in-memory paper exchange")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newLogger logs JSON to w at the configured level.
func newLogger(cfg *config.Config, w io.Writer) *logger.Logger {
	return logger.New(w, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
