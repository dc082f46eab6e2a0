package cmd

import (
	"context"
	"errors"
	"io/fs"

	"github.com/michaelpento.lv/stablearb/config"
	"github.com/michaelpento.lv/stablearb/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
	console bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "stablearb",
	Short: "A paper-trading arbitrage engine for stablecoin pairs across two chains",
	Long: `A CLI engine that polls a stablecoin pool on each of two EVM chains, estimates
gas in USD, and simulates round-trip arbitrage against an in-memory ledger
whenever the price spread clears the configured profit threshold.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, JSON or YAML (default is $HOME/.stablearb.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&console, "console", false, "human readable log output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write rotated JSON logs to this file")
}

func initConfig() {
	log := utils.InitLogger(utils.LogOptions{
		Debug:   debug,
		Console: console,
		LogFile: logFile,
	})

	if err := config.LoadEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load .env file", zap.Error(err))
	}
}
