package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/userdb/dialect"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, dialect.MySQL, cfg.Database.Driver)
	assert.Equal(t, slog.LevelInfo, cfg.Level())

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Addr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdb.yaml")
	writeFile(t, path, `
addr: ":8080"
debug: true
log:
  level: debug
  format: json
database:
  driver: sqlite3
  path: /var/lib/userdb/users.db
  slow_query_threshold: 250ms
cache:
  size: 10
  ttl: 1m
server:
  cors_origins: https://example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, dialect.SQLite, cfg.Database.Driver)
	assert.Equal(t, "/var/lib/userdb/users.db", cfg.Database.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowQueryThreshold.Std())
	assert.Equal(t, 10, cfg.Cache.Size)
	assert.Equal(t, time.Minute, cfg.Cache.TTL.Std())
	assert.Equal(t, StringList{"https://example.com"}, cfg.Server.CORSOrigins)
	// Untouched defaults survive.
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Std())
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"bad_yaml":     "addr: [",
		"bad_duration": "cache:\n  ttl: soon\n",
		"bad_driver":   "database:\n  driver: oracle\n",
		"bad_level":    "log:\n  level: loud\n",
		"bad_format":   "log:\n  format: xml\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "userdb.yaml")
			writeFile(t, path, data)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, ":9000")
	t.Setenv(EnvDriver, "postgres")
	t.Setenv(EnvURL, "postgres://u@db/users")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, dialect.Postgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://u@db/users", cfg.Database.DSN())
	assert.True(t, cfg.Debug)
	assert.Equal(t, slog.LevelWarn, cfg.Level())

	t.Setenv(EnvDebug, "maybe")
	_, err = Load("")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	t.Run("mysql", func(t *testing.T) {
		d := DatabaseConfig{
			Driver:   dialect.MySQL,
			Host:     "db",
			Port:     3306,
			User:     "app",
			Password: "p@ss",
			Name:     "users",
			Params:   map[string]string{"charset": "utf8mb4"},
		}
		parsed, err := mysql.ParseDSN(d.DSN())
		require.NoError(t, err)
		assert.Equal(t, "app", parsed.User)
		assert.Equal(t, "p@ss", parsed.Passwd)
		assert.Equal(t, "db:3306", parsed.Addr)
		assert.Equal(t, "users", parsed.DBName)
		assert.Equal(t, "utf8mb4", parsed.Params["charset"])
	})

	t.Run("postgres", func(t *testing.T) {
		d := DatabaseConfig{
			Driver:   dialect.Postgres,
			Host:     "db",
			Port:     5432,
			User:     "app",
			Password: "secret",
			Name:     "users",
			Params:   map[string]string{"sslmode": "disable"},
		}
		assert.Equal(t, "postgres://app:secret@db:5432/users?sslmode=disable", d.DSN())

		d.Password = ""
		d.Params = nil
		assert.Equal(t, "postgres://app@db:5432/users", d.DSN())
	})

	t.Run("url_wins", func(t *testing.T) {
		d := DatabaseConfig{Driver: dialect.MySQL, URL: "root@tcp(localhost)/x", Host: "ignored"}
		assert.Equal(t, "root@tcp(localhost)/x", d.DSN())
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	cfg := Default()
	cfg.Log.Format = "json"
	l := cfg.NewLogger(&buf, lv)
	l.Debug("hidden")
	l.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	lv.Set(slog.LevelDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
