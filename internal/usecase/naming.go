package usecase

import (
	"strings"
	"time"

	"github.com/semmidev/dbdrive/internal/domain"
)

const (
	timestampLayout = "20060102_150405"
	nameMarker      = "-backup"

	mimeSQL  = "application/sql"
	mimeGzip = "application/gzip"
)

// Naming derives the remote name of an artifact and the identity used
// to find its earlier copies.
type Naming struct {
	Engine      domain.EngineKind
	Compress    bool
	Timestamped bool
	// FixedName replaces the per-database name when a single artifact
	// holds the whole server.
	FixedName string
}

func (n Naming) extension() string {
	ext := n.Engine.Extension()
	if n.Compress && n.Engine == domain.EngineRelational {
		ext += ".gz"
	}
	return ext
}

// LogicalName is <db>-backup<ext>, or <db>-backup-<timestamp><ext> when
// timestamped names are enabled.
func (n Naming) LogicalName(database string, at time.Time) string {
	if n.FixedName != "" {
		return n.fixedName()
	}
	if n.Timestamped {
		return database + nameMarker + "-" + at.Format(timestampLayout) + n.extension()
	}
	return database + nameMarker + n.extension()
}

func (n Naming) Identity(database string) Identity {
	if n.FixedName != "" {
		return Identity{Name: n.fixedName()}
	}
	if n.Timestamped {
		return Identity{Prefix: database + nameMarker + "-", Suffix: n.extension()}
	}
	return Identity{Name: database + nameMarker + n.extension()}
}

func (n Naming) fixedName() string {
	if n.Compress && n.Engine == domain.EngineRelational && !strings.HasSuffix(n.FixedName, ".gz") {
		return n.FixedName + ".gz"
	}
	return n.FixedName
}

func (n Naming) MIMEType() string {
	name := n.extension()
	if n.FixedName != "" {
		name = n.fixedName()
	}
	if strings.HasSuffix(name, ".gz") {
		return mimeGzip
	}
	return mimeSQL
}

// Identity selects the remote entries that belong to one database.
type Identity struct {
	Name   string
	Prefix string
	Suffix string
}

func (id Identity) Filter() domain.RemoteFilter {
	if id.Name != "" {
		return domain.RemoteFilter{Name: id.Name}
	}
	return domain.RemoteFilter{Prefix: id.Prefix}
}

// Matches requires the exact name, or prefix and suffix with a parseable
// timestamp between them.
func (id Identity) Matches(name string) bool {
	if id.Name != "" {
		return name == id.Name
	}
	if !strings.HasPrefix(name, id.Prefix) || !strings.HasSuffix(name, id.Suffix) {
		return false
	}
	middle := name[len(id.Prefix):]
	if len(middle) < len(id.Suffix) {
		return false
	}
	_, err := time.Parse(timestampLayout, middle[:len(middle)-len(id.Suffix)])
	return err == nil
}

func (id Identity) String() string {
	if id.Name != "" {
		return id.Name
	}
	return id.Prefix + "<" + timestampLayout + ">" + id.Suffix
}
