// Package config loads the server configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen    string          `yaml:"listen"`
	Database  DatabaseConfig  `yaml:"database"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Valuation ValuationConfig `yaml:"valuation"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig selects the session store. An empty path keeps sessions in memory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SessionsConfig bounds the in-memory flow cache. Flows idle for longer than
// IdleTimeout are dropped and restored from the store on their next request.
type SessionsConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ValuationConfig points at the external pricing service. Without a URL every
// calculation fails with a service error.
type ValuationConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

func Default() Config {
	return Config{
		Listen:    ":8080",
		Sessions:  SessionsConfig{IdleTimeout: 30 * time.Minute, SweepInterval: time.Minute},
		Valuation: ValuationConfig{Timeout: 10 * time.Second},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Listen = ":" + strings.TrimPrefix(port, ":")
	}
	if v, ok := lookup("DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup("VALUATION_SERVICE_URL"); ok {
		c.Valuation.URL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
}

func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Valuation.Timeout <= 0 {
		return fmt.Errorf("valuation timeout must be positive, got %s", c.Valuation.Timeout)
	}
	if c.Sessions.IdleTimeout <= 0 || c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("session idle timeout and sweep interval must be positive")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// Logger builds the process logger described by the config.
func (l LogConfig) Logger() *slog.Logger {
	lvl, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
