package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/semmidev/dbdrive/internal/domain"
)

// LocalStorage is a directory-backed store. Containers are subdirectories
// of basePath and entry ids are paths relative to it.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (l *LocalStorage) Name() string {
	return "local"
}

func (l *LocalStorage) resolve(rel string) (string, error) {
	if rel == "" {
		return l.basePath, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q escapes storage root", rel)
	}
	return filepath.Join(l.basePath, rel), nil
}

func (l *LocalStorage) List(ctx context.Context, container string, filter domain.RemoteFilter) ([]domain.RemoteEntry, error) {
	dir, err := l.resolve(container)
	if err != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteList, Name: container, Err: err}
	}

	dirEntries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteList, Name: container, Err: fmt.Errorf("failed to read directory: %w", err)}
	}

	var entries []domain.RemoteEntry
	for _, entry := range dirEntries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".upload-") {
			continue
		}
		if filter.Name != "" && entry.Name() != filter.Name {
			continue
		}
		if filter.Name == "" && !strings.HasPrefix(entry.Name(), filter.Prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, &domain.RemoteError{Op: domain.RemoteList, Name: entry.Name(), Err: fmt.Errorf("failed to get file info: %w", err)}
		}

		entries = append(entries, domain.RemoteEntry{
			ID:          filepath.Join(container, entry.Name()),
			Name:        entry.Name(),
			CreatedTime: info.ModTime(),
			Size:        info.Size(),
		})
	}

	return entries, nil
}

// Upload writes to a hidden temp file and renames it into place so a
// failed copy never leaves a visible partial entry.
func (l *LocalStorage) Upload(ctx context.Context, container, name string, body io.Reader, mimeType string) (string, error) {
	id := filepath.Join(container, name)
	destPath, err := l.resolve(id)
	if err != nil {
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: fmt.Errorf("failed to create container: %w", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".upload-*")
	if err != nil {
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: fmt.Errorf("failed to create dest: %w", err)}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: fmt.Errorf("failed to copy: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: fmt.Errorf("failed to close dest: %w", err)}
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: fmt.Errorf("failed to move into place: %w", err)}
	}

	return id, nil
}

func (l *LocalStorage) Delete(ctx context.Context, id string) error {
	filePath, err := l.resolve(id)
	if err == nil {
		err = os.Remove(filePath)
	}
	if err != nil {
		return &domain.RemoteError{Op: domain.RemoteDelete, Name: id, Err: fmt.Errorf("failed to delete file: %w", err)}
	}
	return nil
}
