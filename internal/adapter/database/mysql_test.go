package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mysqlProfile() domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Engine:   domain.EngineRelational,
		Host:     "db.internal",
		Port:     3307,
		Username: "backup",
		Password: `p'a"ss;word`,
	}
}

func TestMySQLListDatabases(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	m := NewMySQL(mysqlProfile(), "", nil)
	m.open = func(dsn string) (*sql.DB, error) {
		assert.Contains(t, dsn, "tcp(db.internal:3307)")
		return sqlDB, nil
	}

	mock.ExpectPing()
	mock.ExpectQuery("SHOW DATABASES").WillReturnRows(
		sqlmock.NewRows([]string{"Database"}).
			AddRow("shop").
			AddRow("information_schema").
			AddRow("analytics").
			AddRow("performance_schema").
			AddRow("mysql").
			AddRow("sys"),
	)

	names, err := m.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop", "analytics"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLListDatabasesEmpty(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	m := NewMySQL(mysqlProfile(), "", nil)
	m.open = func(string) (*sql.DB, error) { return sqlDB, nil }

	mock.ExpectQuery("SHOW DATABASES").WillReturnRows(
		sqlmock.NewRows([]string{"Database"}).AddRow("information_schema"),
	)

	names, err := m.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMySQLListDatabasesConnectionFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	m := NewMySQL(mysqlProfile(), "", nil)
	m.open = func(string) (*sql.DB, error) { return sqlDB, nil }

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = m.ListDatabases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to mysql at db.internal:3307")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMySQLListDatabasesQueryFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	m := NewMySQL(mysqlProfile(), "", nil)
	m.open = func(string) (*sql.DB, error) { return sqlDB, nil }

	mock.ExpectQuery("SHOW DATABASES").WillReturnError(errors.New("access denied"))

	_, err = m.ListDatabases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch databases")
}

func TestMySQLDumpCommand(t *testing.T) {
	m := NewMySQL(mysqlProfile(), "/usr/bin/mysqldump", nil)
	name := `shop"; rm -rf / #`

	cmd := m.dumpCommand(name, "/tmp/out.sql")

	assert.Equal(t, "/usr/bin/mysqldump", cmd.Name)
	assert.Equal(t, []string{
		"--host=db.internal",
		"--port=3307",
		"--user=backup",
		"--single-transaction",
		"--quick",
		"--routines",
		"--triggers",
		"--events",
		"--result-file=/tmp/out.sql",
		"--",
		name,
	}, cmd.Args)
	assert.Equal(t, []string{`MYSQL_PWD=p'a"ss;word`}, cmd.Env)

	for _, arg := range cmd.Args {
		assert.NotContains(t, arg, "p'a\"ss", "password must not appear in argv")
	}
}

func TestMySQLDumpAllCommand(t *testing.T) {
	m := NewMySQL(mysqlProfile(), "", nil)

	cmd := m.dumpAllCommand("/tmp/default-backup.sql")

	assert.Equal(t, "mysqldump", cmd.Name)
	assert.Equal(t, []string{
		"--host=db.internal",
		"--port=3307",
		"--user=backup",
		"--single-transaction",
		"--quick",
		"--routines",
		"--triggers",
		"--events",
		"--result-file=/tmp/default-backup.sql",
		"--all-databases",
	}, cmd.Args)
	assert.Equal(t, []string{`MYSQL_PWD=p'a"ss;word`}, cmd.Env)
}

func TestMySQLDump(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "shop-backup.sql")

	t.Run("success writes artifact", func(t *testing.T) {
		runner := &fakeRunner{writeArg: "--result-file=", content: "CREATE TABLE t (id int);"}
		m := NewMySQL(mysqlProfile(), "", runner)

		require.NoError(t, m.Dump(context.Background(), "shop", out))
		require.Len(t, runner.calls, 1)
		assert.Equal(t, "mysqldump", runner.calls[0].Name)

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("whole server dump writes one artifact", func(t *testing.T) {
		runner := &fakeRunner{writeArg: "--result-file=", content: "CREATE DATABASE shop;"}
		m := NewMySQL(mysqlProfile(), "", runner)
		all := filepath.Join(dir, "default-backup.sql")

		require.NoError(t, m.DumpAll(context.Background(), all))
		require.Len(t, runner.calls, 1)
		assert.Contains(t, runner.calls[0].Args, "--all-databases")
		assert.NotContains(t, runner.calls[0].Args, "--")
		assert.FileExists(t, all)
	})

	t.Run("non-zero exit is a dump failure", func(t *testing.T) {
		runner := &fakeRunner{result: domain.ProcessResult{ExitCode: 2, Stderr: []byte("Access denied")}}
		m := NewMySQL(mysqlProfile(), "", runner)

		err := m.Dump(context.Background(), "shop", filepath.Join(dir, "fail.sql"))
		var dumpErr *domain.DumpFailedError
		require.ErrorAs(t, err, &dumpErr)
		assert.Equal(t, 2, dumpErr.ExitCode)
		assert.Equal(t, "shop", dumpErr.Database)
		assert.Equal(t, "Access denied", dumpErr.Stderr)
	})

	t.Run("zero exit without output is a dump failure", func(t *testing.T) {
		runner := &fakeRunner{}
		m := NewMySQL(mysqlProfile(), "", runner)

		err := m.Dump(context.Background(), "shop", filepath.Join(dir, "missing.sql"))
		require.ErrorIs(t, err, domain.ErrEmptyArtifact)
	})

	t.Run("interrupted run is a dump failure", func(t *testing.T) {
		runner := &fakeRunner{
			result: domain.ProcessResult{ExitCode: -1},
			err:    context.DeadlineExceeded,
		}
		m := NewMySQL(mysqlProfile(), "", runner)

		err := m.Dump(context.Background(), "shop", filepath.Join(dir, "slow.sql"))
		var dumpErr *domain.DumpFailedError
		require.ErrorAs(t, err, &dumpErr)
		assert.Equal(t, -1, dumpErr.ExitCode)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewEngine(t *testing.T) {
	e, err := New(mysqlProfile(), Tools{}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineRelational, e.Kind())

	e, err = New(domain.ConnectionProfile{Engine: domain.EngineDocument, Host: "m"}, Tools{}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineDocument, e.Kind())

	_, err = New(domain.ConnectionProfile{Engine: "postgresql"}, Tools{}, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedEngine)
}
