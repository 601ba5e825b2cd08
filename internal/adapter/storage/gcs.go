package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/semmidev/dbdrive/internal/config"
	"github.com/semmidev/dbdrive/internal/domain"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage treats the container as an object name prefix inside one bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

func NewGCS(ctx context.Context, cfg *config.RemoteConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteAuth, Err: fmt.Errorf("failed to create GCS client: %w", err)}
	}

	return &GCSStorage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (g *GCSStorage) Name() string {
	return "gcs"
}

func (g *GCSStorage) List(ctx context.Context, container string, filter domain.RemoteFilter) ([]domain.RemoteEntry, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &gcs.Query{
		Prefix: objectPrefix(container, filter),
	})

	var entries []domain.RemoteEntry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, remoteError(domain.RemoteList, container, err)
		}

		name, ok := matchObject(container, attrs.Name, filter)
		if !ok {
			continue
		}
		entries = append(entries, domain.RemoteEntry{
			ID:          attrs.Name,
			Name:        name,
			CreatedTime: attrs.Created,
			Size:        attrs.Size,
		})
	}

	return entries, nil
}

func (g *GCSStorage) Upload(ctx context.Context, container, name string, body io.Reader, mimeType string) (string, error) {
	key := objectKey(container, name)

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", remoteError(domain.RemoteUpload, name, fmt.Errorf("failed to upload to GCS: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", remoteError(domain.RemoteUpload, name, fmt.Errorf("failed to finalize GCS upload: %w", err))
	}

	return key, nil
}

func (g *GCSStorage) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucket).Object(key).Delete(ctx); err != nil {
		return remoteError(domain.RemoteDelete, key, err)
	}
	return nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
