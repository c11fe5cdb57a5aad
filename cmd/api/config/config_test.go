package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/books-search/cmd/api/config"
	"github.com/matryer/is"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "missing.yml"), filepath.Join(dir, "missing.env"))
	is.NoErr(err)

	is.Equal(cfg.Server.Host, "0.0.0.0")
	is.Equal(cfg.Server.Port, 8080)
	is.Equal(cfg.Server.ReadTimeout, 10*time.Second)
	is.Equal(cfg.Server.ShutdownTimeout, 10*time.Second)
	is.Equal(cfg.Server.FieldErrorStatus, 405)
	is.Equal(cfg.Storage.Driver, config.DriverMemory)
	is.Equal(cfg.Postgres.MigrationsPath, "./migrations")
	is.Equal(cfg.Bolt.Timeout, time.Second)
	is.Equal(cfg.Bolt.Bucket, "books")
	is.Equal(cfg.Redis.Key, "books")
	is.Equal(cfg.Log.Level, zapcore.InfoLevel)
}

func TestLoadFile(t *testing.T) {
	is := is.New(t)
	path := writeFile(t, "config.yml", `
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 3s
  field_error_status: 422
log:
  level: debug
  production: true
storage:
  driver: bolt
bolt:
  file_path: /tmp/books.db
`)

	cfg, err := config.Load(path, filepath.Join(t.TempDir(), "missing.env"))
	is.NoErr(err)

	is.Equal(cfg.Server.Host, "127.0.0.1")
	is.Equal(cfg.Server.Port, 9090)
	is.Equal(cfg.Server.ReadTimeout, 3*time.Second)
	is.Equal(cfg.Server.WriteTimeout, 10*time.Second)
	is.Equal(cfg.Server.FieldErrorStatus, 422)
	is.Equal(cfg.Log.Level, zapcore.DebugLevel)
	is.True(cfg.Log.Production)
	is.Equal(cfg.Storage.Driver, config.DriverBolt)
	is.Equal(cfg.Bolt.FilePath, "/tmp/books.db")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	is := is.New(t)
	path := writeFile(t, "config.yml", "server:\n  port: 9090\n")
	t.Setenv("BOOKS_SERVER_PORT", "7070")
	t.Setenv("BOOKS_STORAGE_DRIVER", "redis")
	t.Setenv("BOOKS_REDIS_ADDR", "localhost:6379")

	cfg, err := config.Load(path, filepath.Join(t.TempDir(), "missing.env"))
	is.NoErr(err)

	is.Equal(cfg.Server.Port, 7070)
	is.Equal(cfg.Storage.Driver, config.DriverRedis)
	is.Equal(cfg.Redis.Addr, "localhost:6379")
}

func TestDotEnvFile(t *testing.T) {
	is := is.New(t)
	envFile := writeFile(t, "config.env", "BOOKS_POSTGRES_URL=postgres://books@localhost/books\n")
	t.Setenv("BOOKS_STORAGE_DRIVER", "postgres")
	// godotenv sets variables outside of t.Setenv, so register the cleanup by hand.
	t.Cleanup(func() { os.Unsetenv("BOOKS_POSTGRES_URL") })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"), envFile)
	is.NoErr(err)
	is.Equal(cfg.Postgres.URL, "postgres://books@localhost/books")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		desc   string
		env    map[string]string
		errors bool
	}{
		{"unknown driver", map[string]string{"BOOKS_STORAGE_DRIVER": "mongo"}, true},
		{"postgres without url", map[string]string{"BOOKS_STORAGE_DRIVER": "postgres"}, true},
		{"bolt without file", map[string]string{"BOOKS_STORAGE_DRIVER": "bolt"}, true},
		{"redis without address", map[string]string{"BOOKS_STORAGE_DRIVER": "redis"}, true},
		{"server error status", map[string]string{"BOOKS_SERVER_FIELD_ERROR_STATUS": "500"}, true},
		{"plain 400 status", map[string]string{"BOOKS_SERVER_FIELD_ERROR_STATUS": "400"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			is := is.New(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			_, err := config.Load(filepath.Join(dir, "missing.yml"), filepath.Join(dir, "missing.env"))
			is.Equal(err != nil, tt.errors)
		})
	}
}
