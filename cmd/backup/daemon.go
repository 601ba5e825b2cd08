package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/semmidev/dbdrive/internal/app"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run backups on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		application, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		defer application.Shutdown()

		return application.Run(ctx)
	},
}
