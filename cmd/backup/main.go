package main

import (
	"fmt"
	"os"

	"github.com/semmidev/dbdrive/internal/app"
	"github.com/semmidev/dbdrive/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	exitCode   = app.ExitOK
)

var rootCmd = &cobra.Command{
	Use:   "dbdrive",
	Short: "Back up every database on a server to remote storage",
	Long: titleStyle.Render("dbdrive") + "\n" +
		subtitleStyle.Render("scheduled database backups to Drive, S3, GCS or a directory") + "\n\n" +
		"Enumerates the databases of one MySQL/MariaDB or MongoDB server, dumps each one\n" +
		"and uploads the artifact, keeping a fixed number of remote copies.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(app.ExitFatal)
	}
	os.Exit(exitCode)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file")
	rootCmd.AddCommand(runCmd, daemonCmd, authorizeCmd)
}
