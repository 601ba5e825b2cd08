package database

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/semmidev/dbdrive/internal/domain"
)

type MySQLDatabase struct {
	profile  domain.ConnectionProfile
	dumpPath string
	runner   domain.ProcessRunner
	open     func(dsn string) (*sql.DB, error)
}

func NewMySQL(profile domain.ConnectionProfile, dumpPath string, runner domain.ProcessRunner) *MySQLDatabase {
	if dumpPath == "" {
		dumpPath = "mysqldump"
	}
	return &MySQLDatabase{
		profile:  profile,
		dumpPath: dumpPath,
		runner:   runner,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

func (m *MySQLDatabase) Kind() domain.EngineKind {
	return domain.EngineRelational
}

func (m *MySQLDatabase) addr() string {
	return net.JoinHostPort(m.profile.Host, strconv.Itoa(m.profile.DefaultPort()))
}

func (m *MySQLDatabase) dsn() string {
	cfg := mysql.NewConfig()
	cfg.User = m.profile.Username
	cfg.Passwd = m.profile.Password
	cfg.Net = "tcp"
	cfg.Addr = m.addr()
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// ListDatabases runs SHOW DATABASES and drops the system schemas,
// keeping the order the server reported.
func (m *MySQLDatabase) ListDatabases(ctx context.Context) ([]string, error) {
	db, err := m.open(m.dsn())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mysql connection to %s", m.addr())
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to mysql at %s", m.addr())
	}

	rows, err := db.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch databases")
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan database name")
		}
		databases = append(databases, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating database rows")
	}

	return m.Kind().FilterSystemDatabases(databases), nil
}

func (m *MySQLDatabase) Dump(ctx context.Context, database, outputPath string) error {
	return runDump(ctx, m.runner, m.dumpCommand(database, outputPath), database, outputPath)
}

// DumpAll writes every database of the server into one file.
func (m *MySQLDatabase) DumpAll(ctx context.Context, outputPath string) error {
	return runDump(ctx, m.runner, m.dumpAllCommand(outputPath), "all databases", outputPath)
}

func (m *MySQLDatabase) dumpCommand(database, outputPath string) domain.Command {
	return m.command(outputPath, "--", database)
}

func (m *MySQLDatabase) dumpAllCommand(outputPath string) domain.Command {
	return m.command(outputPath, "--all-databases")
}

// command keeps the password out of argv; mysqldump reads MYSQL_PWD.
func (m *MySQLDatabase) command(outputPath string, target ...string) domain.Command {
	args := []string{
		"--host=" + m.profile.Host,
		"--port=" + strconv.Itoa(m.profile.DefaultPort()),
		"--user=" + m.profile.Username,
		"--single-transaction",
		"--quick",
		"--routines",
		"--triggers",
		"--events",
		"--result-file=" + outputPath,
	}
	args = append(args, target...)

	var env []string
	if m.profile.Password != "" {
		env = append(env, "MYSQL_PWD="+m.profile.Password)
	}

	return domain.Command{Name: m.dumpPath, Args: args, Env: env}
}
