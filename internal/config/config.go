// Package config loads shoplist configuration from several sources.
//
// Sources, highest precedence first:
//  1. Command-line flags (applied by package cli)
//  2. Environment variables (SHOPLIST_*)
//  3. YAML configuration file
//  4. Built-in defaults
//
// The merged result is checked against an embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables read by Load.
const (
	EnvListen    = "SHOPLIST_LISTEN"
	EnvDBDriver  = "SHOPLIST_DB_DRIVER"
	EnvDBDSN     = "SHOPLIST_DB_DSN"
	EnvDBTimeout = "SHOPLIST_DB_TIMEOUT"
	EnvLogLevel  = "SHOPLIST_LOG_LEVEL"
	EnvLogFormat = "SHOPLIST_LOG_FORMAT"
	EnvLogFile   = "SHOPLIST_LOG_FILE"
)

// Load builds a Config from defaults, a YAML file and the environment.
//
// If path is set, that file must exist. Otherwise the standard locations are
// tried in order and the first one found is used:
//   - shoplist.yaml (current directory)
//   - shoplist.yml (current directory)
//   - ~/.config/shoplist/config.yaml
//
// Load does not validate; call Validate after applying flag overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, p := range defaultPaths() {
			if _, err := os.Stat(p); err == nil {
				if err := loadFile(p, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", p, err)
				}
				break
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.Log.File = ExpandPath(cfg.Log.File)
	if cfg.Database.Driver == "sqlite3" {
		cfg.Database.DSN = ExpandPath(cfg.Database.DSN)
	}

	return cfg, nil
}

func defaultPaths() []string {
	return []string{
		"shoplist.yaml",
		"shoplist.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "shoplist", "config.yaml"),
	}
}

// loadFile reads and parses a YAML config file over cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnv applies environment variable overrides to cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(EnvDBDriver); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvDBTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDBTimeout, err)
		}
		cfg.Database.Timeout = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
	return nil
}

// expandPath expands ~ and environment variables in paths
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(os.Getenv("HOME"), path[2:])
	}
	return os.ExpandEnv(path)
}

// Validate checks the configuration against the embedded CUE schema.
func (c *Config) Validate() error {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := cctx.Encode(c.cueView())
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// cueView renders the config in the shape #Config expects.
func (c *Config) cueView() map[string]any {
	return map[string]any{
		"listen": c.Listen,
		"database": map[string]any{
			"driver":  c.Database.Driver,
			"dsn":     c.Database.DSN,
			"timeout": int64(c.Database.Timeout),
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
			"file":   c.Log.File,
		},
	}
}
