package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Tools    ToolsConfig    `mapstructure:"tools"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// MongoDB specific
	AuthDatabase string `mapstructure:"auth_database"`
}

type ToolsConfig struct {
	MySQLDump string `mapstructure:"mysqldump_path"`
	MongoDump string `mapstructure:"mongodump_path"`
	Mongosh   string `mapstructure:"mongosh_path"`
}

const (
	ModePerDatabase  = "per_database"
	ModeAllDatabases = "all_databases"
)

type BackupConfig struct {
	// Mode is per_database (one artifact per enumerated database) or
	// all_databases (one mysqldump --all-databases artifact named AllDatabasesFile).
	Mode             string          `mapstructure:"mode"`
	AllDatabasesFile string          `mapstructure:"all_databases_file"`
	StagingDir       string          `mapstructure:"staging_dir"`
	Compress         bool            `mapstructure:"compress"`
	TimestampedNames bool            `mapstructure:"timestamped_names"`
	Concurrency      int             `mapstructure:"concurrency"`
	Schedule         string          `mapstructure:"schedule"`
	Retention        RetentionConfig `mapstructure:"retention"`
	Timeouts         TimeoutConfig   `mapstructure:"timeouts"`
	Staging          StagingConfig   `mapstructure:"staging"`
}

type RetentionConfig struct {
	// Keep is the number of remote copies per logical name after an upload.
	// Zero disables pruning.
	Keep int `mapstructure:"keep"`
}

type TimeoutConfig struct {
	Enumerate time.Duration `mapstructure:"enumerate"`
	Dump      time.Duration `mapstructure:"dump"`
	Upload    time.Duration `mapstructure:"upload"`
}

type StagingConfig struct {
	WarnThreshold int `mapstructure:"warn_threshold"`
	MaxAgeDays    int `mapstructure:"max_age_days"`
}

type RemoteConfig struct {
	Type      string `mapstructure:"type"`
	Container string `mapstructure:"container"`

	// Google Drive / GCS
	CredentialsFile  string `mapstructure:"credentials_file"`
	AuthMode         string `mapstructure:"auth_mode"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	TokenFile        string `mapstructure:"token_file"`

	// AWS S3 / GCS
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`

	// Local directory
	Path string `mapstructure:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BotToken      string `mapstructure:"bot_token"`
	ChatID        string `mapstructure:"chat_id"`
	OnlyOnFailure bool   `mapstructure:"only_on_failure"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DBDRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dbdrive")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")

	// Every key is registered so a DBDRIVE_* variable can supply it even
	// when the file omits the section.
	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.auth_database", "")

	v.SetDefault("tools.mysqldump_path", "mysqldump")
	v.SetDefault("tools.mongodump_path", "mongodump")
	v.SetDefault("tools.mongosh_path", "mongosh")

	v.SetDefault("backup.mode", ModePerDatabase)
	v.SetDefault("backup.all_databases_file", "default-backup.sql")
	v.SetDefault("backup.staging_dir", "./storage/backups")
	v.SetDefault("backup.compress", false)
	v.SetDefault("backup.timestamped_names", false)
	v.SetDefault("backup.concurrency", 2)
	v.SetDefault("backup.schedule", "0 0 2 * * *")
	v.SetDefault("backup.retention.keep", 1)
	v.SetDefault("backup.timeouts.enumerate", "30s")
	v.SetDefault("backup.timeouts.dump", "1h")
	v.SetDefault("backup.timeouts.upload", "30m")
	v.SetDefault("backup.staging.warn_threshold", 5)
	v.SetDefault("backup.staging.max_age_days", 0)

	v.SetDefault("remote.type", "gdrive")
	v.SetDefault("remote.container", "")
	v.SetDefault("remote.auth_mode", "service_account")
	v.SetDefault("remote.credentials_file", "")
	v.SetDefault("remote.client_secret_file", "")
	v.SetDefault("remote.token_file", "")
	v.SetDefault("remote.region", "")
	v.SetDefault("remote.bucket", "")
	v.SetDefault("remote.access_key", "")
	v.SetDefault("remote.secret_key", "")
	v.SetDefault("remote.endpoint", "")
	v.SetDefault("remote.use_path_style", false)
	v.SetDefault("remote.path", "")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.telegram.only_on_failure", false)

	v.SetDefault("metrics.listen", "")
}

func (c *Config) Validate() error {
	if _, err := domain.ParseEngineKind(c.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Backup.StagingDir == "" {
		return fmt.Errorf("backup.staging_dir is required")
	}
	if c.Backup.Concurrency < 1 {
		return fmt.Errorf("backup.concurrency must be at least 1")
	}
	if c.Backup.Retention.Keep < 0 {
		return fmt.Errorf("backup.retention.keep must not be negative")
	}
	switch c.Backup.Mode {
	case "", ModePerDatabase:
	case ModeAllDatabases:
		if kind, _ := domain.ParseEngineKind(c.Database.Driver); kind != domain.EngineRelational {
			return fmt.Errorf("backup.mode all_databases is only supported for mysql")
		}
		if c.Backup.TimestampedNames {
			return fmt.Errorf("backup.mode all_databases uses a fixed name and cannot be timestamped")
		}
		if f := c.Backup.AllDatabasesFile; f == "" || strings.ContainsAny(f, `/\`) {
			return fmt.Errorf("backup.all_databases_file must be a plain file name")
		}
	default:
		return fmt.Errorf("backup.mode: unknown mode %q", c.Backup.Mode)
	}
	if c.Backup.Retention.Keep > 1 && !c.Backup.TimestampedNames {
		return fmt.Errorf("backup.retention.keep > 1 requires backup.timestamped_names")
	}

	switch c.Remote.Type {
	case "gdrive":
		if c.Remote.Container == "" {
			return fmt.Errorf("remote.container (Drive folder id) is required for gdrive")
		}
		switch c.Remote.AuthMode {
		case "service_account":
			if c.Remote.CredentialsFile == "" {
				return fmt.Errorf("remote.credentials_file is required for service_account auth")
			}
		case "oauth":
			if c.Remote.ClientSecretFile == "" || c.Remote.TokenFile == "" {
				return fmt.Errorf("remote.client_secret_file and remote.token_file are required for oauth auth")
			}
		default:
			return fmt.Errorf("remote.auth_mode: unknown mode %q", c.Remote.AuthMode)
		}
	case "s3", "gcs":
		if c.Remote.Bucket == "" {
			return fmt.Errorf("remote.bucket is required for %s", c.Remote.Type)
		}
	case "local":
		if c.Remote.Path == "" {
			return fmt.Errorf("remote.path is required for local")
		}
	default:
		return fmt.Errorf("remote.type: unknown type %q", c.Remote.Type)
	}

	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram: bot_token and chat_id are required when enabled")
	}

	return nil
}

// Profile builds the connection profile handed to the backup pipeline.
func (c *Config) Profile() (domain.ConnectionProfile, error) {
	kind, err := domain.ParseEngineKind(c.Database.Driver)
	if err != nil {
		return domain.ConnectionProfile{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	return domain.ConnectionProfile{
		Engine:       kind,
		Host:         c.Database.Host,
		Port:         c.Database.Port,
		Username:     c.Database.Username,
		Password:     c.Database.Password,
		AuthDatabase: c.Database.AuthDatabase,
	}, nil
}
