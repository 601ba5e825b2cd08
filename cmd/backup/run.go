package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/semmidev/dbdrive/internal/app"
	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backup job and exit",
	Long: "Run one backup job and exit.\n\n" +
		"Exit status is 0 when every database was dumped and uploaded, 1 when some\n" +
		"failed and 2 when the job could not start.",
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
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

	result, err := application.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(renderSummary(result))
	exitCode = app.ExitCode(result, nil)
	return nil
}

func renderSummary(result *domain.JobResult) string {
	if len(result.Entries) == 0 {
		return dimStyle.Render("no databases to back up")
	}

	rows := make([][]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		status := "ok"
		detail := e.RemoteID
		if !e.Succeeded() {
			status = "failed"
			detail = e.ErrorMessage()
		}
		rows = append(rows, []string{
			e.Database,
			status,
			e.LogicalName,
			humanize.Bytes(uint64(e.Size)),
			fmt.Sprintf("%d", len(e.Pruned)),
			detail,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers("database", "status", "artifact", "size", "pruned", "remote id / error").
		Rows(rows...)

	failed := len(result.Failed())
	footer := successStyle.Render(fmt.Sprintf("==> %d database(s) backed up in %s", len(result.Entries), result.Duration().Round(1e9)))
	if failed > 0 {
		footer = errorStyle.Render(fmt.Sprintf("==> %d of %d database(s) failed", failed, len(result.Entries)))
	}

	return titleStyle.Render("==> job "+result.ID) + "\n\n" + t.String() + "\n" + footer
}
