package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/velasur/inventory-cli/internal/sanitize"
)

// Config holds the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Dropbox DropboxConfig `yaml:"dropbox" mapstructure:"dropbox"`
	FTP     FTPConfig     `yaml:"ftp" mapstructure:"ftp"`
	Holded  HoldedConfig  `yaml:"holded" mapstructure:"holded"`
	SMTP    SMTPConfig    `yaml:"smtp" mapstructure:"smtp"`
	Webhook WebhookConfig `yaml:"webhook" mapstructure:"webhook"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceConfig selects and tunes the remote file source.
type SourceConfig struct {
	Driver            string   `yaml:"driver" mapstructure:"driver"` // "dropbox" or "ftp"
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
	MaxFileSizeMB     int      `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	TempDir           string   `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// DropboxConfig holds Dropbox API credentials and the monitored folder.
type DropboxConfig struct {
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	FolderPath  string `yaml:"folder_path" mapstructure:"folder_path"`
}

// FTPConfig holds FTP source settings.
type FTPConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	FolderPath  string `yaml:"folder_path" mapstructure:"folder_path"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// HoldedConfig holds Holded API settings.
type HoldedConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SMTPConfig holds the notification mail account.
type SMTPConfig struct {
	Host     string   `yaml:"host" mapstructure:"host"`
	Port     int      `yaml:"port" mapstructure:"port"`
	Username string   `yaml:"username" mapstructure:"username"`
	Password string   `yaml:"password" mapstructure:"password"`
	From     string   `yaml:"from" mapstructure:"from"`
	To       []string `yaml:"to" mapstructure:"to"`
}

// WebhookConfig holds the optional report webhook.
type WebhookConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// StoreConfig configures the run/file-state database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SyncConfig tunes the reconciliation run.
type SyncConfig struct {
	WarehouseID string `yaml:"warehouse_id" mapstructure:"warehouse_id"`
	AliasFile   string `yaml:"alias_file" mapstructure:"alias_file"`
}

// ServerConfig configures the webhook trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`
	Format   string `yaml:"format" mapstructure:"format"`
	Sanitize bool   `yaml:"sanitize" mapstructure:"sanitize"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INVENTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.driver", "dropbox")
	v.SetDefault("source.allowed_extensions", []string{"csv", "xlsx"})
	v.SetDefault("source.max_file_size_mb", 10)
	v.SetDefault("dropbox.folder_path", "/inventory-updates")
	v.SetDefault("ftp.timeout_secs", 30)
	v.SetDefault("holded.base_url", "https://api.holded.com/api/invoicing/v1")
	v.SetDefault("holded.rate_per_sec", 4)
	v.SetDefault("holded.timeout_secs", 30)
	v.SetDefault("smtp.port", 465)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "inventory.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.sanitize", true)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger, optionally wrapping the
// core so that credentials and addresses never reach the log output.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	var opts []zap.Option
	if cfg.Sanitize {
		opts = append(opts, zap.WrapCore(sanitize.WrapCore))
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
