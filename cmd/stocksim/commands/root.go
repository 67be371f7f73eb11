package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/stocksim/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stocksim",
	Short: "Inventory loss forecast by day-by-day stock simulation",
	Long: `stocksim Unified CLI

Forecasts, per product, the probability of losing stock to shortage,
lack of space or expiration over the coming days. Each day replays the
historical average entries and withdrawals for its calendar slot.

Usage:
  go run ./cmd/stocksim [command]

Examples:
  go run ./cmd/stocksim simulate run --product <uuid>
  go run ./cmd/stocksim simulate scenario --file config/scenarios/example.yaml
  go run ./cmd/stocksim summary list
  go run ./cmd/stocksim api
  go run ./cmd/stocksim test-db --migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration after applying the global flags.
// local skips the database requirement for offline commands.
func loadConfig(local bool) (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}
	if env != "" {
		if err := setEnv("ENV", env); err != nil {
			return nil, err
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if local {
		cfg, err = config.LoadLocal()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func setEnv(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
