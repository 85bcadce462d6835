package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizcore/internal/storage/sqldb"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quizcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, StorageTypeMemory, cfg.Storage.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
  shutdown_timeout: 5s
log:
  level: debug
  format: text
storage:
  type: redis
  redis:
    url: redis://cache:6379/2
    key_prefix: test
auth:
  session_duration: 2h
  allow_admin_signup: true
gateway:
  allowed_origins:
    - https://quiz.example.com
`)

	cfg, err := load(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	// unset fields keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, StorageTypeRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/2", cfg.Storage.Redis.URL)
	assert.Equal(t, "test", cfg.Storage.Redis.KeyPrefix)
	assert.Equal(t, 10, cfg.Storage.Redis.PoolSize)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionDuration)
	assert.True(t, cfg.Auth.AllowAdminSignup)
	assert.Equal(t, []string{"https://quiz.example.com"}, cfg.Gateway.AllowedOrigins)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadPathFromEnv(t *testing.T) {
	path := writeFile(t, "server:\n  port: 7000\n")

	cfg, err := load("", envMap(map[string]string{PathEnv: path}))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: 7000\nstorage:\n  type: memory\n")

	cfg, err := load(path, envMap(map[string]string{
		"PORT":         "7100",
		"STORAGE_TYPE": "sql",
		"DATABASE_URL": "postgres://quiz:secret@db/quiz?sslmode=disable",
		"LOG_LEVEL":    "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, StorageTypeSQL, cfg.Storage.Type)
	assert.Equal(t, sqldb.DriverPostgres, cfg.Storage.SQL.Driver)
	assert.Equal(t, "postgres://quiz:secret@db/quiz?sslmode=disable", cfg.Storage.SQL.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestDatabaseDriverOverride(t *testing.T) {
	cfg, err := load("", envMap(map[string]string{
		"STORAGE_TYPE":    "sql",
		"DATABASE_URL":    "file:quiz.db?cache=shared",
		"DATABASE_DRIVER": "sqlite3",
	}))
	require.NoError(t, err)
	assert.Equal(t, sqldb.DriverSQLite, cfg.Storage.SQL.Driver)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{name: "missing file", path: "/nonexistent/quizcore.yaml"},
		{name: "bad port", env: map[string]string{"PORT": "eighty"}},
		{name: "unknown storage", env: map[string]string{"STORAGE_TYPE": "cassandra"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "bad sql driver", env: map[string]string{"STORAGE_TYPE": "sql", "DATABASE_DRIVER": "mysql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.path, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeFile(t, "server: [not, a, map")

	_, err := load(path, envMap(nil))
	assert.Error(t, err)
}
