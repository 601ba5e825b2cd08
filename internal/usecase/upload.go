package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/semmidev/dbdrive/internal/infrastructure/metrics"
)

type UploadResult struct {
	RemoteID string
	Pruned   []string
	Warnings []string
}

// Uploader prunes earlier copies, uploads the artifact and removes the
// local file once the upload has succeeded.
type Uploader struct {
	store     domain.RemoteStore
	container string
	retention *Retention
	keep      int
	logger    Logger
}

func NewUploader(store domain.RemoteStore, container string, retention *Retention, keep int, logger Logger) *Uploader {
	return &Uploader{
		store:     store,
		container: container,
		retention: retention,
		keep:      keep,
		logger:    logger,
	}
}

func (u *Uploader) Upload(ctx context.Context, artifact domain.BackupArtifact, identity Identity) (UploadResult, error) {
	var result UploadResult
	db := artifact.Database

	pruned, err := u.retention.Prune(ctx, u.store, u.container, identity, u.keep)
	if err != nil {
		u.logger.Warnf("[%s] Retention skipped: %v", db, err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("retention: %v", err))
	}
	result.Pruned = pruned.Deleted
	for _, ferr := range pruned.Failed {
		result.Warnings = append(result.Warnings, ferr.Error())
	}

	file, err := os.Open(artifact.LocalPath)
	if err != nil {
		return result, &domain.RemoteError{Op: domain.RemoteUpload, Name: artifact.LogicalName, Err: fmt.Errorf("open artifact: %w", err)}
	}
	defer file.Close()

	u.logger.Infof("[%s] Uploading %s to %s...", db, artifact.LogicalName, u.store.Name())
	start := time.Now()
	id, err := u.store.Upload(ctx, u.container, artifact.LogicalName, file, artifact.MIMEType)
	metrics.UploadDuration.WithLabelValues(u.store.Name()).Observe(time.Since(start).Seconds())
	metrics.UploadCount.WithLabelValues(u.store.Name(), metrics.Status(err)).Inc()
	if err != nil {
		return result, err
	}
	result.RemoteID = id
	u.logger.Infof("[%s] Uploaded to %s (id %s)", db, u.store.Name(), id)

	file.Close()
	if err := os.Remove(artifact.LocalPath); err != nil && !os.IsNotExist(err) {
		u.logger.Warnf("[%s] Failed to remove local artifact %s: %v", db, artifact.LocalPath, err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("local cleanup: %v", err))
	}

	return result, nil
}
