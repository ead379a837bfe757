// Package config loads the userdb server configuration from a YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/syssam/userdb/dialect"
)

// Environment variables overriding the file.
const (
	EnvAddr     = "USERDB_ADDR"
	EnvDriver   = "DATABASE_DRIVER"
	EnvURL      = "DATABASE_URL"
	EnvDebug    = "USERDB_DEBUG"
	EnvLogLevel = "USERDB_LOG_LEVEL"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":3001"

// Config is the server configuration.
type Config struct {
	Addr     string         `yaml:"addr,omitempty"`
	Debug    bool           `yaml:"debug,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level,omitempty"`
	// Format is text or json.
	Format string `yaml:"format,omitempty"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	// Driver is mysql, postgres or sqlite.
	Driver string `yaml:"driver,omitempty"`
	// URL is a complete DSN. When set, the fields below are ignored.
	URL      string            `yaml:"url,omitempty"`
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	User     string            `yaml:"user,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Name     string            `yaml:"name,omitempty"`
	Params   map[string]string `yaml:"params,omitempty"`
	// Path is the database file of the sqlite driver.
	Path string `yaml:"path,omitempty"`

	MaxOpenConns       int      `yaml:"max_open_conns,omitempty"`
	MaxIdleConns       int      `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime    Duration `yaml:"conn_max_lifetime,omitempty"`
	SlowQueryThreshold Duration `yaml:"slow_query_threshold,omitempty"`
}

// CacheConfig configures the membership cache. A zero Size disables it.
type CacheConfig struct {
	Size int      `yaml:"size,omitempty"`
	TTL  Duration `yaml:"ttl,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ReadTimeout     Duration   `yaml:"read_timeout,omitempty"`
	WriteTimeout    Duration   `yaml:"write_timeout,omitempty"`
	ShutdownTimeout Duration   `yaml:"shutdown_timeout,omitempty"`
	CORSOrigins     StringList `yaml:"cors_origins,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Addr: DefaultAddr,
		Log:  LogConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			Driver:             dialect.MySQL,
			Host:               "127.0.0.1",
			Port:               3306,
			User:               "root",
			Name:               "users",
			Path:               "userdb.db",
			SlowQueryThreshold: Duration(100 * time.Millisecond),
		},
		Cache: CacheConfig{Size: 10000, TTL: Duration(5 * time.Minute)},
		Server: ServerConfig{
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			CORSOrigins:     StringList{"*"},
		},
	}
}

// Load reads the file at path over the defaults and applies the
// environment overrides. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup(EnvDriver); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvURL); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvDebug, err)
		}
		c.Debug = b
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the configuration and normalizes the driver name.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	switch d := strings.ToLower(c.Database.Driver); {
	case d == dialect.MySQL, d == dialect.Postgres:
		c.Database.Driver = d
	case d == "postgresql":
		c.Database.Driver = dialect.Postgres
	case strings.HasPrefix(d, dialect.SQLite):
		c.Database.Driver = dialect.SQLite
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Log.Format)
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case dialect.Postgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(d.Host, d.Port),
			Path:   "/" + d.Name,
		}
		if d.User != "" {
			u.User = url.UserPassword(d.User, d.Password)
			if d.Password == "" {
				u.User = url.User(d.User)
			}
		}
		q := url.Values{}
		for k, v := range d.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return u.String()
	case dialect.SQLite:
		return d.Path
	default:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort(d.Host, d.Port)
		cfg.DBName = d.Name
		if len(d.Params) > 0 {
			cfg.Params = make(map[string]string, len(d.Params))
			for k, v := range d.Params {
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN()
	}
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Level returns the configured log level, info when it is unset.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// NewLogger returns a logger writing to w in the configured format, at the
// level held by lv.
func (c *Config) NewLogger(w io.Writer, lv *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lv}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Duration is a time.Duration read from strings like "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected duration, got %v", node.Kind)
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}
