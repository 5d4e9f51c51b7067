package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Backend drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// BackendConfig selects and configures the document store.
type BackendConfig struct {
	// Driver is "sqlite" or "mongo".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// MongoURI is the connection string for the mongo driver. When empty
	// it is read from the OS keyring.
	MongoURI string `mapstructure:"mongo_uri" yaml:"mongo_uri"`

	// MongoDatabase is the database holding the board collections.
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`

	// GroupQueries enables the cross-project notification query. Disable
	// it to force the per-project inbox strategy.
	GroupQueries bool `mapstructure:"group_queries" yaml:"group_queries"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// JWTSecret signs and verifies bearer tokens. When empty it is read
	// from the OS keyring.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// NotificationConfig tunes the bulk mutators.
type NotificationConfig struct {
	// BatchSize caps the number of writes per batch commit.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// DigestConfig holds settings for the email digest.
type DigestConfig struct {
	From string `mapstructure:"from" yaml:"from"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend       BackendConfig      `mapstructure:"backend" yaml:"backend"`
	Server        ServerConfig       `mapstructure:"server" yaml:"server"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Digest        DigestConfig       `mapstructure:"digest" yaml:"digest"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskboard", "config.yaml")
}

// defaultDBPath returns ~/.local/share/taskboard/taskboard.db.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "taskboard.db"
	}
	return filepath.Join(home, ".local", "share", "taskboard", "taskboard.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			Driver:        DriverSQLite,
			SQLitePath:    defaultDBPath(),
			MongoDatabase: "taskboard",
			GroupQueries:  true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			AllowOrigins: []string{"http://localhost:5173"},
		},
		Notifications: NotificationConfig{
			BatchSize: 400,
		},
		Digest: DigestConfig{
			From: "taskboard@localhost",
		},
	}
}

// setDefaults mirrors defaultAppConfig into v so missing keys resolve.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("backend.driver", d.Backend.Driver)
	v.SetDefault("backend.sqlite_path", d.Backend.SQLitePath)
	v.SetDefault("backend.mongo_database", d.Backend.MongoDatabase)
	v.SetDefault("backend.group_queries", d.Backend.GroupQueries)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("notifications.batch_size", d.Notifications.BatchSize)
	v.SetDefault("digest.from", d.Digest.From)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKBOARD_ override file values
// (e.g. TASKBOARD_BACKEND_DRIVER). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the application cannot use.
func (c *AppConfig) Validate() error {
	switch c.Backend.Driver {
	case DriverSQLite:
		if c.Backend.SQLitePath == "" {
			return fmt.Errorf("backend.sqlite_path must not be empty")
		}
	case DriverMongo:
		if c.Backend.MongoDatabase == "" {
			return fmt.Errorf("backend.mongo_database must not be empty")
		}
	default:
		return fmt.Errorf("unknown backend.driver %q", c.Backend.Driver)
	}
	if c.Notifications.BatchSize < 1 || c.Notifications.BatchSize > 500 {
		return fmt.Errorf("notifications.batch_size must be between 1 and 500, got %d",
			c.Notifications.BatchSize)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("server", cfg.Server)
	v.Set("notifications", cfg.Notifications)
	v.Set("digest", cfg.Digest)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
