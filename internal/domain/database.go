package domain

import (
	"context"
	"fmt"
	"strings"
)

type EngineKind string

const (
	EngineRelational EngineKind = "mysql"
	EngineDocument   EngineKind = "mongodb"
)

// ParseEngineKind maps a configured driver name onto an engine kind.
func ParseEngineKind(driver string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "mariadb":
		return EngineRelational, nil
	case "mongodb", "mongo":
		return EngineDocument, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, driver)
	}
}

func (k EngineKind) Valid() bool {
	return k == EngineRelational || k == EngineDocument
}

// Extension is the artifact extension produced by the engine's dump tool.
func (k EngineKind) Extension() string {
	switch k {
	case EngineRelational:
		return ".sql"
	case EngineDocument:
		return ".gz"
	}
	return ".backup"
}

var systemDatabases = map[EngineKind]map[string]bool{
	EngineRelational: {
		"information_schema": true,
		"performance_schema": true,
		"mysql":              true,
		"sys":                true,
	},
	EngineDocument: {
		"admin":  true,
		"local":  true,
		"config": true,
	},
}

func (k EngineKind) IsSystemDatabase(name string) bool {
	return systemDatabases[k][strings.ToLower(name)]
}

// FilterSystemDatabases drops the engine's system databases, keeping order.
func (k EngineKind) FilterSystemDatabases(names []string) []string {
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || k.IsSystemDatabase(name) {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered
}

type ConnectionProfile struct {
	Engine       EngineKind
	Host         string
	Port         int
	Username     string
	Password     string
	AuthDatabase string
}

func (p ConnectionProfile) Validate() error {
	if !p.Engine.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrUnsupportedEngine, string(p.Engine))
	}
	if p.Host == "" {
		return fmt.Errorf("%w: database host is required", ErrConfiguration)
	}
	return nil
}

// DefaultPort returns the profile port, falling back to the engine default.
func (p ConnectionProfile) DefaultPort() int {
	if p.Port > 0 {
		return p.Port
	}
	if p.Engine == EngineDocument {
		return 27017
	}
	return 3306
}

type Enumerator interface {
	ListDatabases(ctx context.Context) ([]string, error)
}

type Dumper interface {
	Dump(ctx context.Context, database, outputPath string) error
}

// ServerDumper writes every database of a server into a single artifact.
type ServerDumper interface {
	DumpAll(ctx context.Context, outputPath string) error
}
