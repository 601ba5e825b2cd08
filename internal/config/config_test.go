package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/semmidev/dbdrive/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

const minimalConfig = `
database:
  driver: mysql
  host: db.internal
  username: backup
  password: secret
remote:
  type: gdrive
  container: folder-123
  credentials_file: /etc/dbdrive/service-account.json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a config file", t, func() {
		Convey("When only required fields are set", func() {
			cfg, err := Load(writeConfig(t, minimalConfig))

			Convey("It should apply defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.App.Name, ShouldEqual, "dbdrive")
				So(cfg.Backup.Concurrency, ShouldEqual, 2)
				So(cfg.Backup.Retention.Keep, ShouldEqual, 1)
				So(cfg.Backup.Timeouts.Dump, ShouldEqual, time.Hour)
				So(cfg.Backup.Timeouts.Enumerate, ShouldEqual, 30*time.Second)
				So(cfg.Tools.MySQLDump, ShouldEqual, "mysqldump")
				So(cfg.Remote.AuthMode, ShouldEqual, "service_account")
			})

			Convey("It should build the connection profile", func() {
				profile, err := cfg.Profile()
				So(err, ShouldBeNil)
				So(profile.Engine, ShouldEqual, domain.EngineRelational)
				So(profile.Host, ShouldEqual, "db.internal")
				So(profile.Password, ShouldEqual, "secret")
			})
		})

		Convey("When an environment variable overrides the password", func() {
			t.Setenv("DBDRIVE_DATABASE_PASSWORD", "from-env")
			cfg, err := Load(writeConfig(t, minimalConfig))

			Convey("It should take precedence over the file", func() {
				So(err, ShouldBeNil)
				So(cfg.Database.Password, ShouldEqual, "from-env")
			})
		})

		Convey("When sections missing from the file come from the environment", func() {
			t.Setenv("DBDRIVE_METRICS_LISTEN", ":9100")
			t.Setenv("DBDRIVE_NOTIFY_TELEGRAM_CHAT_ID", "-100123")
			t.Setenv("DBDRIVE_NOTIFY_TELEGRAM_ONLY_ON_FAILURE", "true")
			t.Setenv("DBDRIVE_REMOTE_TOKEN_FILE", "/etc/dbdrive/token.json")
			cfg, err := Load(writeConfig(t, minimalConfig))

			Convey("They should be applied", func() {
				So(err, ShouldBeNil)
				So(cfg.Metrics.Listen, ShouldEqual, ":9100")
				So(cfg.Notify.Telegram.ChatID, ShouldEqual, "-100123")
				So(cfg.Notify.Telegram.OnlyOnFailure, ShouldBeTrue)
				So(cfg.Remote.TokenFile, ShouldEqual, "/etc/dbdrive/token.json")
			})
		})

		Convey("When the remote is configured only through the environment", func() {
			body := `
database:
  driver: mysql
  host: db.internal
`
			t.Setenv("DBDRIVE_REMOTE_TYPE", "s3")
			t.Setenv("DBDRIVE_REMOTE_BUCKET", "nightly-dumps")
			t.Setenv("DBDRIVE_REMOTE_REGION", "eu-west-1")
			t.Setenv("DBDRIVE_REMOTE_USE_PATH_STYLE", "true")
			cfg, err := Load(writeConfig(t, body))

			Convey("Validation should see the bucket", func() {
				So(err, ShouldBeNil)
				So(cfg.Remote.Bucket, ShouldEqual, "nightly-dumps")
				So(cfg.Remote.Region, ShouldEqual, "eu-west-1")
				So(cfg.Remote.UsePathStyle, ShouldBeTrue)
			})
		})

		Convey("When the whole server is dumped into one file", func() {
			body := minimalConfig + `
backup:
  mode: all_databases
`
			cfg, err := Load(writeConfig(t, body))

			Convey("The default file name should apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Backup.Mode, ShouldEqual, ModeAllDatabases)
				So(cfg.Backup.AllDatabasesFile, ShouldEqual, "default-backup.sql")
			})
		})

		Convey("When the driver is unsupported", func() {
			body := `
database:
  driver: postgresql
  host: db
remote:
  type: local
  path: /tmp/remote
`
			_, err := Load(writeConfig(t, body))

			Convey("It should be rejected", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, domain.ErrUnsupportedEngine), ShouldBeTrue)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("It should fail to read", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to read config")
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a valid base config", t, func() {
		cfg := Config{
			Database: DatabaseConfig{Driver: "mongodb", Host: "mongo"},
			Backup:   BackupConfig{StagingDir: "/tmp/staging", Concurrency: 1, Retention: RetentionConfig{Keep: 1}},
			Remote:   RemoteConfig{Type: "s3", Bucket: "backups"},
		}
		So(cfg.Validate(), ShouldBeNil)

		Convey("Missing host is rejected", func() {
			cfg.Database.Host = ""
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("Zero concurrency is rejected", func() {
			cfg.Backup.Concurrency = 0
			So(cfg.Validate().Error(), ShouldContainSubstring, "concurrency")
		})

		Convey("Negative retention is rejected", func() {
			cfg.Backup.Retention.Keep = -1
			So(cfg.Validate().Error(), ShouldContainSubstring, "retention.keep")
		})

		Convey("Keeping several copies needs distinct names", func() {
			cfg.Backup.Retention.Keep = 3
			So(cfg.Validate().Error(), ShouldContainSubstring, "timestamped_names")

			cfg.Backup.TimestampedNames = true
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Whole-server mode is MySQL only", func() {
			cfg.Backup.Mode = ModeAllDatabases
			cfg.Backup.AllDatabasesFile = "default-backup.sql"
			So(cfg.Validate().Error(), ShouldContainSubstring, "only supported for mysql")

			cfg.Database.Driver = "mysql"
			So(cfg.Validate(), ShouldBeNil)

			cfg.Backup.AllDatabasesFile = "../escape.sql"
			So(cfg.Validate().Error(), ShouldContainSubstring, "plain file name")

			cfg.Backup.AllDatabasesFile = "default-backup.sql"
			cfg.Backup.TimestampedNames = true
			So(cfg.Validate().Error(), ShouldContainSubstring, "cannot be timestamped")
		})

		Convey("Unknown backup mode is rejected", func() {
			cfg.Backup.Mode = "incremental"
			So(cfg.Validate().Error(), ShouldContainSubstring, "unknown mode")
		})

		Convey("Unknown remote type is rejected", func() {
			cfg.Remote.Type = "ftp"
			So(cfg.Validate().Error(), ShouldContainSubstring, "unknown type")
		})

		Convey("gdrive oauth needs client secret and token files", func() {
			cfg.Remote = RemoteConfig{Type: "gdrive", Container: "f", AuthMode: "oauth", ClientSecretFile: "cs.json"}
			So(cfg.Validate().Error(), ShouldContainSubstring, "token_file")
		})

		Convey("Telegram needs a token and chat id when enabled", func() {
			cfg.Notify.Telegram = TelegramConfig{Enabled: true, BotToken: "t"}
			So(cfg.Validate().Error(), ShouldContainSubstring, "notify.telegram")
		})
	})
}
