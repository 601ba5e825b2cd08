package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/semmidev/dbdrive/internal/infrastructure/metrics"
	"golang.org/x/sync/errgroup"
)

// AllDatabasesLabel names the single entry of a whole-server job.
const AllDatabasesLabel = "all-databases"

type Timeouts struct {
	Enumerate time.Duration
	Dump      time.Duration
	Upload    time.Duration
}

type BackupOptions struct {
	StagingDir  string
	Naming      Naming
	Concurrency int
	Timeouts    Timeouts
}

// Backup enumerates the databases of one server and dumps and uploads
// each of them. A failing database never stops the others.
type Backup struct {
	profile    domain.ConnectionProfile
	enumerator domain.Enumerator
	dumper     domain.Dumper
	compressor domain.Compressor
	uploader   *Uploader
	opts       BackupOptions
	logger     Logger
	now        func() time.Time
}

func NewBackup(
	profile domain.ConnectionProfile,
	enumerator domain.Enumerator,
	dumper domain.Dumper,
	compressor domain.Compressor,
	uploader *Uploader,
	opts BackupOptions,
	logger Logger,
) *Backup {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Backup{
		profile:    profile,
		enumerator: enumerator,
		dumper:     dumper,
		compressor: compressor,
		uploader:   uploader,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Run returns an error only for job-fatal conditions. Per-database
// failures are recorded on the returned result.
func (uc *Backup) Run(ctx context.Context) (*domain.JobResult, error) {
	result := &domain.JobResult{
		ID:        uuid.NewString(),
		Engine:    uc.profile.Engine,
		StartedAt: uc.now(),
	}
	defer func() { result.FinishedAt = uc.now() }()

	targets, err := uc.prepare(ctx)
	if err != nil {
		metrics.JobCount.WithLabelValues(metrics.StatusFailure).Inc()
		return result, err
	}

	names := make([]string, len(targets))
	for i, target := range targets {
		names[i] = target.name
	}
	uc.logger.Infof("Starting backup of %d database(s): %s", len(names), strings.Join(names, ", "))

	result.Entries = make([]domain.DatabaseResult, len(targets))
	var g errgroup.Group
	g.SetLimit(uc.opts.Concurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			result.Entries[i] = uc.backupDatabase(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	failed := len(result.Failed())
	status := metrics.StatusSuccess
	if failed > 0 {
		status = metrics.StatusFailure
	} else {
		metrics.LastSuccess.Set(float64(uc.now().Unix()))
	}
	metrics.JobCount.WithLabelValues(status).Inc()
	uc.logger.Infof("Backup job finished: %d succeeded, %d failed", len(targets)-failed, failed)

	return result, nil
}

// dumpTarget is one unit of work: a named database, or the whole server.
type dumpTarget struct {
	name string
	dump func(ctx context.Context, path string) error
}

func (uc *Backup) prepare(ctx context.Context) ([]dumpTarget, error) {
	if err := uc.profile.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(uc.opts.StagingDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create staging directory: %w", domain.ErrConfiguration, err)
	}

	if uc.opts.Naming.FixedName != "" {
		server, ok := uc.dumper.(domain.ServerDumper)
		if !ok {
			return nil, fmt.Errorf("%w: %s engine cannot dump a whole server", domain.ErrConfiguration, uc.profile.Engine)
		}
		return []dumpTarget{{name: AllDatabasesLabel, dump: server.DumpAll}}, nil
	}

	enumCtx, cancel := withTimeout(ctx, uc.opts.Timeouts.Enumerate)
	defer cancel()

	listed, err := uc.enumerator.ListDatabases(enumCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEnumeration, err)
	}

	targets := make([]dumpTarget, 0, len(listed))
	for _, name := range listed {
		name := name
		if uc.profile.Engine.IsSystemDatabase(name) {
			uc.logger.Warnf("Skipping system database %s", name)
			continue
		}
		targets = append(targets, dumpTarget{
			name: name,
			dump: func(ctx context.Context, path string) error {
				return uc.dumper.Dump(ctx, name, path)
			},
		})
	}
	return targets, nil
}

func (uc *Backup) backupDatabase(ctx context.Context, target dumpTarget) domain.DatabaseResult {
	name := target.name
	start := uc.now()
	entry := domain.DatabaseResult{Database: name}
	defer func() {
		entry.Duration = uc.now().Sub(start)
		if entry.Err != nil {
			uc.logger.Errorf("[%s] Backup failed: %v", name, entry.Err)
		}
	}()

	naming := uc.opts.Naming
	entry.LogicalName = naming.LogicalName(name, start)
	finalPath := filepath.Join(uc.opts.StagingDir, entry.LogicalName)
	dumpPath := finalPath
	compress := naming.Compress && naming.Engine == domain.EngineRelational
	if compress {
		dumpPath = strings.TrimSuffix(finalPath, ".gz")
	}

	uc.logger.Infof("[%s] Dumping to %s", name, dumpPath)
	if err := uc.dump(ctx, target, dumpPath); err != nil {
		entry.ArtifactPath = dumpPath
		entry.Err = err
		return entry
	}
	entry.Dumped = true
	entry.ArtifactPath = dumpPath

	if compress {
		uc.logger.Infof("[%s] Compressing backup...", name)
		if err := uc.compressor.Compress(dumpPath, finalPath); err != nil {
			entry.Err = fmt.Errorf("compress %s: %w", name, err)
			return entry
		}
		_ = os.Remove(dumpPath)
		entry.ArtifactPath = finalPath
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		entry.Err = fmt.Errorf("stat artifact %s: %w", finalPath, err)
		return entry
	}
	entry.Size = info.Size()
	uc.logger.Infof("[%s] Artifact ready, size: %s", name, humanize.Bytes(uint64(entry.Size)))

	artifact := domain.BackupArtifact{
		Database:    name,
		LocalPath:   finalPath,
		LogicalName: entry.LogicalName,
		MIMEType:    naming.MIMEType(),
		Size:        entry.Size,
		CreatedAt:   info.ModTime(),
	}

	uploadCtx, cancel := withTimeout(ctx, uc.opts.Timeouts.Upload)
	defer cancel()

	uploaded, err := uc.uploader.Upload(uploadCtx, artifact, naming.Identity(name))
	entry.Pruned = uploaded.Pruned
	entry.Warnings = uploaded.Warnings
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Uploaded = true
	entry.RemoteID = uploaded.RemoteID
	metrics.ArtifactSize.WithLabelValues(name).Set(float64(entry.Size))

	uc.logger.Infof("[%s] Backup completed in %s: %s", name, uc.now().Sub(start).Round(time.Second), entry.LogicalName)
	return entry
}

func (uc *Backup) dump(ctx context.Context, target dumpTarget, path string) error {
	dumpCtx, cancel := withTimeout(ctx, uc.opts.Timeouts.Dump)
	defer cancel()

	start := time.Now()
	err := target.dump(dumpCtx, path)
	engine := string(uc.profile.Engine)
	metrics.DumpDuration.WithLabelValues(engine, target.name).Observe(time.Since(start).Seconds())
	metrics.DumpCount.WithLabelValues(engine, target.name, metrics.Status(err)).Inc()
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
