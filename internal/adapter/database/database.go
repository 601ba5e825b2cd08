package database

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/semmidev/dbdrive/internal/domain"
)

const stderrTail = 2048

type Engine interface {
	domain.Enumerator
	domain.Dumper
	Kind() domain.EngineKind
}

// Tools holds the executable names or paths of the engine tools.
type Tools struct {
	MySQLDump string
	MongoDump string
	Mongosh   string
}

func New(profile domain.ConnectionProfile, tools Tools, runner domain.ProcessRunner) (Engine, error) {
	switch profile.Engine {
	case domain.EngineRelational:
		return NewMySQL(profile, tools.MySQLDump, runner), nil
	case domain.EngineDocument:
		return NewMongoDB(profile, tools.MongoDump, tools.Mongosh, runner), nil
	default:
		return nil, errors.Wrapf(domain.ErrUnsupportedEngine, "engine %q", string(profile.Engine))
	}
}

// runDump executes a dump command and checks that it left a non-empty file.
func runDump(ctx context.Context, runner domain.ProcessRunner, cmd domain.Command, database, outputPath string) error {
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return &domain.DumpFailedError{
			Database: database,
			ExitCode: res.ExitCode,
			Stderr:   domain.TailString(res.Stderr, stderrTail),
			Err:      err,
		}
	}
	if res.ExitCode != 0 {
		return &domain.DumpFailedError{
			Database: database,
			ExitCode: res.ExitCode,
			Stderr:   domain.TailString(res.Stderr, stderrTail),
		}
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return &domain.DumpFailedError{
			Database: database,
			ExitCode: res.ExitCode,
			Err:      domain.ErrEmptyArtifact,
		}
	}

	return nil
}
