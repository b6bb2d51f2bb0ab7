// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package config loads SheetVault settings from defaults, an optional YAML
// file, command-line flags and the DATABASE_URL environment variable, in
// increasing order of precedence.
package config

import (
	"net"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/sheetvault/sheetvault/internal/logging"
)

// EnvDatabaseURL overrides database.url when set.
const EnvDatabaseURL = "DATABASE_URL"

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig locates PostgreSQL and controls connection retries.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff"`
}

// MetricsConfig controls the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Format: logging.FormatJSON, Level: "info"},
		Database: DatabaseConfig{
			ConnectAttempts: 5,
			ConnectBackoff:  500 * time.Millisecond,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
	}
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-format":                "log.format",
	"log-level":                 "log.level",
	"database-url":              "database.url",
	"database-connect-attempts": "database.connect_attempts",
	"database-connect-backoff":  "database.connect_backoff",
	"metrics-addr":              "metrics.addr",
}

// BindFlags registers the configuration flags on fs with built-in defaults.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection URL (env "+EnvDatabaseURL+")")
	fs.Int("database-connect-attempts", d.Database.ConnectAttempts, "database connection attempts before giving up")
	fs.Duration("database-connect-backoff", d.Database.ConnectBackoff, "initial delay between connection attempts")
	fs.String("metrics-addr", d.Metrics.Addr, "observability server address (empty to disable)")
}

// Load builds a Config. path may be empty. fs may be nil; when given, only
// flags that were set on the command line override the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "load config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		cfg.Database.URL = url
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later and further from
// their source. The database URL is checked by the commands that need it.
func (c *Config) Validate() error {
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Database.ConnectAttempts < 1 {
		return oops.Code("CONFIG_INVALID").
			With("database.connect_attempts", c.Database.ConnectAttempts).
			Errorf("database.connect_attempts must be at least 1")
	}
	if c.Database.ConnectBackoff <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("database.connect_backoff", c.Database.ConnectBackoff.String()).
			Errorf("database.connect_backoff must be positive")
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return oops.Code("CONFIG_INVALID").With("metrics.addr", c.Metrics.Addr).Wrap(err)
		}
	}
	return nil
}

// RequireDatabase reports a CONFIG_INVALID error when no database URL is set.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (set database.url, --database-url or %s)", EnvDatabaseURL)
	}
	return nil
}
