package database

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/semmidev/dbdrive/internal/domain"
)

const listDatabasesScript = "JSON.stringify(db.adminCommand({listDatabases: 1, nameOnly: true}))"

type MongoDBDatabase struct {
	profile   domain.ConnectionProfile
	dumpPath  string
	shellPath string
	runner    domain.ProcessRunner
}

func NewMongoDB(profile domain.ConnectionProfile, dumpPath, shellPath string, runner domain.ProcessRunner) *MongoDBDatabase {
	if dumpPath == "" {
		dumpPath = "mongodump"
	}
	if shellPath == "" {
		shellPath = "mongosh"
	}
	return &MongoDBDatabase{
		profile:   profile,
		dumpPath:  dumpPath,
		shellPath: shellPath,
		runner:    runner,
	}
}

func (m *MongoDBDatabase) Kind() domain.EngineKind {
	return domain.EngineDocument
}

func (m *MongoDBDatabase) connectionArgs() []string {
	args := []string{
		"--host=" + m.profile.Host,
		"--port=" + strconv.Itoa(m.profile.DefaultPort()),
	}
	if m.profile.Username != "" {
		authDB := m.profile.AuthDatabase
		if authDB == "" {
			authDB = "admin"
		}
		args = append(args, "--username="+m.profile.Username)
		// an empty --password= makes the tools prompt on stdin
		if m.profile.Password != "" {
			args = append(args, "--password="+m.profile.Password)
		}
		args = append(args, "--authenticationDatabase="+authDB)
	}
	return args
}

type listDatabasesReply struct {
	Databases []struct {
		Name string `json:"name"`
	} `json:"databases"`
	OK     float64 `json:"ok"`
	ErrMsg string  `json:"errmsg"`
}

func (m *MongoDBDatabase) ListDatabases(ctx context.Context) ([]string, error) {
	args := append([]string{"--quiet", "--norc"}, m.connectionArgs()...)
	args = append(args, "--eval", listDatabasesScript)

	res, err := m.runner.Run(ctx, domain.Command{Name: m.shellPath, Args: args})
	if err != nil {
		return nil, errors.Wrap(err, "failed to run mongosh")
	}
	if res.ExitCode != 0 {
		return nil, errors.Errorf("mongosh exited with code %d: %s",
			res.ExitCode, domain.TailString(res.Stderr, stderrTail))
	}

	return parseListDatabases(res.Stdout)
}

// parseListDatabases reads the last JSON object line of the shell output;
// mongosh may print banners or warnings before it.
func parseListDatabases(out []byte) ([]string, error) {
	var payload []byte
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("{")) {
			payload = line
		}
	}
	if payload == nil {
		return nil, errors.Errorf("no listDatabases reply in output: %s", domain.TailString(out, 256))
	}

	var reply listDatabasesReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return nil, errors.Wrap(err, "failed to parse listDatabases reply")
	}
	if reply.OK != 1 {
		return nil, errors.Errorf("listDatabases failed: %s", reply.ErrMsg)
	}

	names := make([]string, 0, len(reply.Databases))
	for _, db := range reply.Databases {
		names = append(names, db.Name)
	}

	return domain.EngineDocument.FilterSystemDatabases(names), nil
}

func (m *MongoDBDatabase) Dump(ctx context.Context, database, outputPath string) error {
	return runDump(ctx, m.runner, m.dumpCommand(database, outputPath), database, outputPath)
}

func (m *MongoDBDatabase) dumpCommand(database, outputPath string) domain.Command {
	args := append(m.connectionArgs(),
		"--db="+database,
		"--archive="+outputPath,
		"--gzip",
	)
	return domain.Command{Name: m.dumpPath, Args: args}
}
