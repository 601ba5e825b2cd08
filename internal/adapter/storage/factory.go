package storage

import (
	"context"
	"fmt"

	"github.com/semmidev/dbdrive/internal/config"
	"github.com/semmidev/dbdrive/internal/domain"
)

// New builds the remote store named by cfg.Type.
func New(ctx context.Context, cfg *config.RemoteConfig) (domain.RemoteStore, error) {
	var (
		store domain.RemoteStore
		err   error
	)

	switch cfg.Type {
	case "gdrive":
		var s *GDriveStorage
		if s, err = NewGDrive(ctx, cfg); err == nil {
			store = s
		}
	case "s3":
		var s *S3Storage
		if s, err = NewS3(ctx, cfg); err == nil {
			store = s
		}
	case "gcs":
		var s *GCSStorage
		if s, err = NewGCS(ctx, cfg); err == nil {
			store = s
		}
	case "local":
		var s *LocalStorage
		if s, err = NewLocal(cfg.Path); err == nil {
			store = s
		}
	default:
		err = fmt.Errorf("%w: unknown remote type %q", domain.ErrConfiguration, cfg.Type)
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}
