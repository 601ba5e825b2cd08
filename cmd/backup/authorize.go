package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/semmidev/dbdrive/internal/app"
	"github.com/semmidev/dbdrive/internal/infrastructure/logger"
	"github.com/spf13/cobra"
)

var authorizeAddr string

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Obtain a Google Drive refresh token for oauth mode",
	Long: "Start a local consent server, open the printed URL in a browser and approve\n" +
		"access. The refresh token is written to remote.token_file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log, err := logger.New(logger.Options{Level: cfg.App.LogLevel})
		if err != nil {
			return err
		}
		defer log.Close()

		auth, err := app.NewAuthorizer(log, cfg.Remote.ClientSecretFile, cfg.Remote.TokenFile)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		auth.Start(authorizeAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = auth.Shutdown(shutdownCtx)
		}()

		fmt.Println(titleStyle.Render("==> open this URL to authorize"))
		fmt.Println(auth.AuthURL())
		fmt.Println(dimStyle.Render(fmt.Sprintf("or visit http://%s/auth/google/drive", authorizeAddr)))

		if err := auth.Wait(ctx); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("[ok] token saved to " + cfg.Remote.TokenFile))
		return nil
	},
}

func init() {
	authorizeCmd.Flags().StringVar(&authorizeAddr, "addr", "localhost:8085", "listen address of the consent callback server")
}
