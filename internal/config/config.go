// Package config loads server configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/quizcore/internal/api"
	"github.com/mcoot/quizcore/internal/realtime/ws"
	"github.com/mcoot/quizcore/internal/services/auth"
	redisstorage "github.com/mcoot/quizcore/internal/storage/redis"
	"github.com/mcoot/quizcore/internal/storage/sqldb"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQL    = "sql"
)

// PathEnv names the environment variable holding the config file path
const PathEnv = "QUIZCORE_CONFIG"

// Config is the complete server configuration
type Config struct {
	Server  api.ServerConfig `yaml:"server"`
	Log     LogConfig        `yaml:"log"`
	Storage StorageConfig    `yaml:"storage"`
	Auth    auth.Config      `yaml:"auth"`
	Gateway ws.Config        `yaml:"gateway"`
}

// LogConfig controls the server's slog handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type  string              `yaml:"type"`
	Redis redisstorage.Config `yaml:"redis"`
	SQL   sqldb.Config        `yaml:"sql"`
}

// Default returns the configuration used when nothing is specified
func Default() Config {
	return Config{
		Server: api.DefaultServerConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Type:  StorageTypeMemory,
			Redis: redisstorage.DefaultConfig(),
			SQL:   sqldb.DefaultConfig(),
		},
		Auth: auth.DefaultConfig(),
	}
}

// Load reads the file at path (if non-empty) over the defaults, then
// applies environment overrides and validates the result
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("STORAGE_TYPE"); ok && v != "" {
		c.Storage.Type = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Storage.Redis.URL = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Storage.SQL.DSN = v
		// a URL DSN implies postgres unless the driver is set explicitly
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			c.Storage.SQL.Driver = sqldb.DriverPostgres
		}
	}
	if v, ok := lookup("DATABASE_DRIVER"); ok && v != "" {
		c.Storage.SQL.Driver = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.Storage.Redis.URL == "" {
			errs = append(errs, errors.New("storage.redis.url is required for redis storage"))
		}
	case StorageTypeSQL:
		if c.Storage.SQL.DSN == "" {
			errs = append(errs, errors.New("storage.sql.dsn is required for sql storage"))
		}
		if c.Storage.SQL.Driver != sqldb.DriverSQLite && c.Storage.SQL.Driver != sqldb.DriverPostgres {
			errs = append(errs, fmt.Errorf("storage.sql.driver must be %q or %q", sqldb.DriverSQLite, sqldb.DriverPostgres))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be memory, redis or sql, got %q", c.Storage.Type))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the configured level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the server logger writing to stdout
func (l LogConfig) NewLogger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
