package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrUnsupportedEngine = errors.New("unsupported database engine")
	ErrEnumeration       = errors.New("database enumeration failed")
	ErrEmptyArtifact     = errors.New("dump produced no output")
)

type DumpFailedError struct {
	Database string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DumpFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dump of %s failed (exit code %d)", e.Database, e.ExitCode)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ", stderr: %s", e.Stderr)
	}
	return b.String()
}

func (e *DumpFailedError) Unwrap() error {
	return e.Err
}

type RemoteOp string

const (
	RemoteAuth   RemoteOp = "auth"
	RemoteList   RemoteOp = "list"
	RemoteUpload RemoteOp = "upload"
	RemoteDelete RemoteOp = "delete"
)

// RemoteError is returned by remote store adapters. Name is the blob name
// or id the operation targeted.
type RemoteError struct {
	Op   RemoteOp
	Name string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func IsRemoteOp(err error, op RemoteOp) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Op == op
}

// TailString keeps the last max bytes of tool output for error messages.
func TailString(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
