package domain

import "context"

// Command is an external program invocation. Args are passed to the
// program as-is, one element per argv slot.
type Command struct {
	Name string
	Args []string
	Env  []string
}

type ProcessResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// ProcessRunner returns a non-nil error only when the program could not be
// started or was interrupted; a non-zero exit is reported in the result.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (ProcessResult, error)
}
