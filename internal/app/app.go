package app

import (
	"context"
	"fmt"
	"io"

	"github.com/semmidev/dbdrive/internal/adapter/compressor"
	"github.com/semmidev/dbdrive/internal/adapter/database"
	"github.com/semmidev/dbdrive/internal/adapter/notify"
	"github.com/semmidev/dbdrive/internal/adapter/process"
	"github.com/semmidev/dbdrive/internal/adapter/storage"
	"github.com/semmidev/dbdrive/internal/config"
	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/semmidev/dbdrive/internal/infrastructure/logger"
	"github.com/semmidev/dbdrive/internal/infrastructure/metrics"
	"github.com/semmidev/dbdrive/internal/infrastructure/scheduler"
	"github.com/semmidev/dbdrive/internal/usecase"
)

const (
	ExitOK      = 0
	ExitPartial = 1
	ExitFatal   = 2
)

type Notifier interface {
	Notify(ctx context.Context, result *domain.JobResult) error
	NotifyAborted(ctx context.Context, jobErr error) error
}

type App struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler *scheduler.Scheduler
	store     domain.RemoteStore
	backupUC  *usecase.Backup
	cleanupUC *usecase.Cleanup
	notifier  Notifier
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.Options{Level: cfg.App.LogLevel, File: cfg.App.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log.Infof("Starting %s", cfg.App.Name)

	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	engine, err := database.New(profile, database.Tools{
		MySQLDump: cfg.Tools.MySQLDump,
		MongoDump: cfg.Tools.MongoDump,
		Mongosh:   cfg.Tools.Mongosh,
	}, process.NewExec())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	log.Infof("✓ Database %s at %s:%d", engine.Kind(), profile.Host, profile.DefaultPort())

	store, err := storage.New(ctx, &cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s remote: %w", cfg.Remote.Type, err)
	}
	log.Infof("✓ Remote %s enabled (container: %s)", store.Name(), cfg.Remote.Container)

	staging, err := storage.NewLocal(cfg.Backup.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize staging directory: %w", err)
	}

	naming := usecase.Naming{
		Engine:      profile.Engine,
		Compress:    cfg.Backup.Compress,
		Timestamped: cfg.Backup.TimestampedNames,
	}
	if cfg.Backup.Mode == config.ModeAllDatabases {
		naming.FixedName = cfg.Backup.AllDatabasesFile
	}
	uploader := usecase.NewUploader(store, cfg.Remote.Container, usecase.NewRetention(log), cfg.Backup.Retention.Keep, log)

	backupUC := usecase.NewBackup(profile, engine, engine, compressor.NewGzip(), uploader, usecase.BackupOptions{
		StagingDir:  cfg.Backup.StagingDir,
		Naming:      naming,
		Concurrency: cfg.Backup.Concurrency,
		Timeouts: usecase.Timeouts{
			Enumerate: cfg.Backup.Timeouts.Enumerate,
			Dump:      cfg.Backup.Timeouts.Dump,
			Upload:    cfg.Backup.Timeouts.Upload,
		},
	}, log)

	a := &App{
		config:    cfg,
		logger:    log,
		scheduler: scheduler.New(log),
		store:     store,
		backupUC:  backupUC,
		cleanupUC: usecase.NewCleanup(staging, log, cfg.Backup.Staging.WarnThreshold, cfg.Backup.Staging.MaxAgeDays),
	}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(&cfg.Notify.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram: %w", err)
		}
		a.notifier = tg
		log.Infof("✓ Telegram notifications enabled")
	}

	return a, nil
}

// RunOnce executes one backup job followed by the staging audit.
func (a *App) RunOnce(ctx context.Context) (*domain.JobResult, error) {
	result, err := a.backupUC.Run(ctx)
	jobLog := a.logger.ForJob(result.ID)

	if err != nil {
		jobLog.Errorf("Backup job aborted: %v", err)
		if a.notifier != nil {
			if nerr := a.notifier.NotifyAborted(ctx, err); nerr != nil {
				jobLog.Warnf("Notification failed: %v", nerr)
			}
		}
		return result, err
	}

	for _, e := range result.Failed() {
		jobLog.Errorf("[%s] %s", e.Database, e.ErrorMessage())
	}
	for _, e := range result.Entries {
		for _, w := range e.Warnings {
			jobLog.Warnf("[%s] %s", e.Database, w)
		}
	}

	if _, cerr := a.cleanupUC.Execute(ctx); cerr != nil {
		jobLog.Warnf("Staging audit failed: %v", cerr)
	}

	if a.notifier != nil {
		if nerr := a.notifier.Notify(ctx, result); nerr != nil {
			jobLog.Warnf("Notification failed: %v", nerr)
		}
	}

	return result, nil
}

// Run schedules the job and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	schedule := a.config.Backup.Schedule
	if err := a.scheduler.AddJob(schedule, "backup", func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	metricsErr := make(chan error, 1)
	if addr := a.config.Metrics.Listen; addr != "" {
		a.logger.Infof("Metrics server listening on %s", addr)
		go func() {
			metricsErr <- metrics.Serve(ctx, addr)
		}()
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started (%s), next run at %s", schedule, a.scheduler.Next().Format("2006-01-02 15:04:05"))

	select {
	case <-ctx.Done():
		return nil
	case err := <-metricsErr:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warnf("Failed to close remote client: %v", err)
		}
	}
	a.logger.Close()
}

// ExitCode maps a job outcome to the process exit status.
func ExitCode(result *domain.JobResult, err error) int {
	if err != nil {
		return ExitFatal
	}
	if result == nil || !result.Succeeded() {
		return ExitPartial
	}
	return ExitOK
}
