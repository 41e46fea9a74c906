/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreamhome/planner/config"
	"github.com/dreamhome/planner/internal/logging"
	"github.com/dreamhome/planner/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the planner event channel",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published on the configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.Setup(os.Stderr, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if events == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer events.Close()

		logger.Info("tailing events", "backend", cfg.MQ.Backend, "channel", events.Channel())
		err = events.SubscribeEvents(ctx, func(ctx context.Context, event mq.Event) error {
			logger.Info(event.Type,
				"username", event.Username,
				"kind", event.Kind,
				"item_id", event.ItemID,
				"item_name", event.ItemName,
				"occurred_at", event.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
