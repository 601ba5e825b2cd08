package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/semmidev/dbdrive/internal/config"
	"github.com/semmidev/dbdrive/internal/domain"
)

// S3Storage treats the container as a key prefix inside one bucket.
type S3Storage struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3 creates a new S3Storage instance using AWS SDK v2. Without static
// keys the default credential chain is used.
func NewS3(ctx context.Context, cfg *config.RemoteConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteAuth, Err: fmt.Errorf("failed to load AWS config: %w", err)}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Storage{
		client:   client,
		uploader: s3manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

func (s *S3Storage) Name() string {
	return "s3"
}

func objectKey(container, name string) string {
	if container == "" {
		return name
	}
	return path.Join(container, name)
}

// objectPrefix is the key prefix of a listing; with an empty filter it
// lists the whole container.
func objectPrefix(container string, filter domain.RemoteFilter) string {
	switch {
	case filter.Name != "":
		return objectKey(container, filter.Name)
	case filter.Prefix != "":
		return objectKey(container, filter.Prefix)
	case container != "":
		return strings.TrimSuffix(container, "/") + "/"
	}
	return ""
}

// matchObject reports the name of key relative to container when it
// belongs to the listing.
func matchObject(container, key string, filter domain.RemoteFilter) (string, bool) {
	name := key
	if container != "" {
		dir := strings.TrimSuffix(container, "/") + "/"
		if !strings.HasPrefix(key, dir) {
			return "", false
		}
		name = strings.TrimPrefix(key, dir)
	}
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	if filter.Name != "" {
		return name, name == filter.Name
	}
	return name, strings.HasPrefix(name, filter.Prefix)
}

func (s *S3Storage) List(ctx context.Context, container string, filter domain.RemoteFilter) ([]domain.RemoteEntry, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(objectPrefix(container, filter)),
	})

	var entries []domain.RemoteEntry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, remoteError(domain.RemoteList, container, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name, ok := matchObject(container, key, filter)
			if !ok {
				continue
			}
			entries = append(entries, domain.RemoteEntry{
				ID:          key,
				Name:        name,
				CreatedTime: aws.ToTime(obj.LastModified),
				Size:        aws.ToInt64(obj.Size),
			})
		}
	}

	return entries, nil
}

func (s *S3Storage) Upload(ctx context.Context, container, name string, body io.Reader, mimeType string) (string, error) {
	key := objectKey(container, name)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", remoteError(domain.RemoteUpload, name, err)
	}

	return key, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return remoteError(domain.RemoteDelete, key, err)
	}
	return nil
}
