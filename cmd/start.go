package cmd

import (
	"github.com/michaelpento.lv/stablearb/cmd/bot"
	"github.com/michaelpento.lv/stablearb/config"
	"github.com/michaelpento.lv/stablearb/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the arbitrage loop until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		ctx := cmd.Context()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load configuration", zap.Error(err))
		}

		b, err := bot.New(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to create engine", zap.Error(err))
		}

		if err := b.Start(ctx); err != nil {
			log.Fatal("Failed to start engine", zap.Error(err))
		}

		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		b.Stop()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
