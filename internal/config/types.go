package config

import "time"

// Config is the complete shoplist configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects and bounds the storage backend.
type DatabaseConfig struct {
	Driver  string        `yaml:"driver"`  // "sqlite3" | "postgres"
	DSN     string        `yaml:"dsn"`     // file path for sqlite3, connection string for postgres
	Timeout time.Duration `yaml:"timeout"` // per storage call
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // empty means stderr
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen: "0.0.0.0:5001",
		Database: DatabaseConfig{
			Driver:  "sqlite3",
			DSN:     "shoplist.db",
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
