// Package config loads the repoql CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
// REPOQL_DATABASE_DSN sets database.dsn.
const EnvPrefix = "REPOQL_"

// Config is the full CLI configuration.
type Config struct {
	Database Database `mapstructure:"database"`
	Schema   string   `mapstructure:"schema"`
	Log      Log      `mapstructure:"log"`
	Server   Server   `mapstructure:"server"`
	Exec     Exec     `mapstructure:"exec"`
}

// Database selects the dialect and connection string.
type Database struct {
	Dialect string `mapstructure:"dialect"`
	DSN     string `mapstructure:"dsn"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Exec configures query execution.
type Exec struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Workers int           `mapstructure:"workers"`
}

var dialects = map[string]bool{"sqlite": true, "postgres": true, "mysql": true, "mariadb": true, "mssql": true}

func defaults(v *viper.Viper) {
	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.dsn", "repoql.db")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("exec.timeout", "30s")
	v.SetDefault("exec.workers", 16)
}

// Load reads configuration from an optional file, then from REPOQL_*
// environment variables, which take precedence. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// AutomaticEnv does not reach nested keys on Unmarshal, so the
	// environment is copied in key by key.
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		prop := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "_", "."))
		v.Set(strings.TrimPrefix(prop, "."), value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields Load cannot check by type.
func (c *Config) Validate() error {
	if !dialects[c.Database.Dialect] {
		return fmt.Errorf("unknown database dialect %q (want sqlite, postgres, mysql, mariadb or mssql)", c.Database.Dialect)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Exec.Timeout < 0 {
		return fmt.Errorf("exec.timeout must not be negative, got %s", c.Exec.Timeout)
	}
	if c.Exec.Workers < 1 {
		return fmt.Errorf("exec.workers must be at least 1, got %d", c.Exec.Workers)
	}
	return nil
}
