package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/semmidev/dbdrive/internal/config"
	"github.com/semmidev/dbdrive/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveListFields = "nextPageToken, files(id, name, createdTime, size)"

type GDriveStorage struct {
	service *drive.Service
}

// NewGDrive authenticates once with either a service-account key file or a
// stored OAuth token, depending on cfg.AuthMode.
func NewGDrive(ctx context.Context, cfg *config.RemoteConfig) (*GDriveStorage, error) {
	opts, err := driveClientOptions(ctx, cfg)
	if err != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteAuth, Err: err}
	}

	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteAuth, Err: fmt.Errorf("failed to create drive service: %w", err)}
	}

	return &GDriveStorage{service: service}, nil
}

func driveClientOptions(ctx context.Context, cfg *config.RemoteConfig) ([]option.ClientOption, error) {
	switch cfg.AuthMode {
	case "", "service_account":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("service account key: %w", err)
		}
		return []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveScope),
		}, nil

	case "oauth":
		oauthCfg, err := LoadOAuthConfig(cfg.ClientSecretFile)
		if err != nil {
			return nil, err
		}
		token, err := LoadToken(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{
			option.WithTokenSource(oauthCfg.TokenSource(ctx, token)),
		}, nil
	}

	return nil, fmt.Errorf("unknown drive auth mode %q", cfg.AuthMode)
}

// LoadOAuthConfig parses a Google client_secret.json for the drive.file scope.
func LoadOAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}
	return cfg, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("unable to parse token file: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s has no refresh token", path)
	}
	return &token, nil
}

func SaveToken(path string, token *oauth2.Token) error {
	b, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (g *GDriveStorage) Name() string {
	return "gdrive"
}

var driveQueryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func driveListQuery(folderID string, filter domain.RemoteFilter) string {
	q := fmt.Sprintf("'%s' in parents and trashed = false", driveQueryEscaper.Replace(folderID))
	switch {
	case filter.Name != "":
		q += fmt.Sprintf(" and name = '%s'", driveQueryEscaper.Replace(filter.Name))
	case filter.Prefix != "":
		q += fmt.Sprintf(" and name contains '%s'", driveQueryEscaper.Replace(filter.Prefix))
	}
	return q
}

func (g *GDriveStorage) List(ctx context.Context, folderID string, filter domain.RemoteFilter) ([]domain.RemoteEntry, error) {
	var entries []domain.RemoteEntry

	err := g.service.Files.List().
		Q(driveListQuery(folderID, filter)).
		Fields(driveListFields).
		OrderBy("createdTime desc").
		PageSize(100).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				// "contains" matches word prefixes anywhere in the name
				if filter.Name == "" && !strings.HasPrefix(f.Name, filter.Prefix) {
					continue
				}
				created, _ := time.Parse(time.RFC3339, f.CreatedTime)
				entries = append(entries, domain.RemoteEntry{
					ID:          f.Id,
					Name:        f.Name,
					CreatedTime: created,
					Size:        f.Size,
				})
			}
			return nil
		})
	if err != nil {
		return nil, remoteError(domain.RemoteList, folderID, err)
	}

	return entries, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, folderID, name string, body io.Reader, mimeType string) (string, error) {
	fileMetadata := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	file, err := g.service.Files.Create(fileMetadata).
		Media(body, googleapi.ContentType(mimeType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", remoteError(domain.RemoteUpload, name, err)
	}

	return file.Id, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, fileID string) error {
	err := g.service.Files.Delete(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return remoteError(domain.RemoteDelete, fileID, err)
	}
	return nil
}
