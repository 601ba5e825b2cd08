package domain

import (
	"context"
	"io"
	"time"
)

type RemoteEntry struct {
	ID          string
	Name        string
	CreatedTime time.Time
	Size        int64
}

// RemoteFilter selects entries by exact Name, or by Prefix when Name is empty.
type RemoteFilter struct {
	Name   string
	Prefix string
}

type RemoteStore interface {
	List(ctx context.Context, container string, filter RemoteFilter) ([]RemoteEntry, error)
	Upload(ctx context.Context, container, name string, body io.Reader, mimeType string) (string, error)
	Delete(ctx context.Context, remoteID string) error
	Name() string
}
