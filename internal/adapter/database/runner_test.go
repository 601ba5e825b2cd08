package database

import (
	"context"
	"os"

	"github.com/semmidev/dbdrive/internal/domain"
)

// fakeRunner records commands and optionally writes the dump file named by
// writeArg (e.g. "--result-file=").
type fakeRunner struct {
	calls    []domain.Command
	result   domain.ProcessResult
	err      error
	writeArg string
	content  string
}

func (f *fakeRunner) Run(ctx context.Context, cmd domain.Command) (domain.ProcessResult, error) {
	f.calls = append(f.calls, cmd)
	if f.writeArg != "" {
		for _, a := range cmd.Args {
			if len(a) > len(f.writeArg) && a[:len(f.writeArg)] == f.writeArg {
				_ = os.WriteFile(a[len(f.writeArg):], []byte(f.content), 0644)
			}
		}
	}
	return f.result, f.err
}
