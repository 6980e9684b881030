/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"github.com/tgblog/apiserver/config"
	"github.com/tgblog/apiserver/internal/logutil"
	"github.com/tgblog/apiserver/internal/mq"
	"github.com/tgblog/apiserver/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect post events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log post events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logutil.New(cfg.Log.Level, cfg.Log.Format)

		queue, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer queue.Close()

		logger.Info().Str("channel", cfg.MQ.PostEventsChannel).Msg("tailing post events")
		err = queue.Subscribe(cmd.Context(), cfg.MQ.PostEventsChannel, func(ctx context.Context, msg mq.Message) error {
			var event types.PostEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// a payload we cannot read will not improve on redelivery
				logger.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping malformed event")
				return nil
			}
			logger.Info().
				Str("message_id", msg.ID).
				Str("type", string(event.Type)).
				Int("post_id", event.PostID).
				Str("title", event.Title).
				Str("actor", event.Actor).
				Time("occurred_at", event.OccurredAt).
				Msg("post event")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
