/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tgblog/apiserver/config"
	"github.com/tgblog/apiserver/internal/bot"
	"github.com/tgblog/apiserver/internal/logutil"
)

// botCmd represents the bot command
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Runs the Telegram bot that reads posts from the API",
	Long: `Runs the Telegram bot. BOT_TOKEN must be set and API_BASE_URL must
point at a running blog API. Usage:

	blogapi bot
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logutil.New(cfg.Log.Level, cfg.Log.Format)

		b, err := bot.New(cfg.Bot, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to start bot")
			return err
		}
		return b.Run(logutil.WithLogger(cmd.Context(), logger))
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
