package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	for _, env := range []string{EnvListen, EnvDBDriver, EnvDBDSN, EnvDBTimeout, EnvLogLevel, EnvLogFormat, EnvLogFile} {
		t.Setenv(env, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
listen: "127.0.0.1:8080"
database:
  driver: postgres
  dsn: "postgres://shop@localhost/shop?sslmode=disable"
  timeout: 2s
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "shoplist.yaml"), "listen: \":9000\"\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
}

func TestLoad_HomeConfig(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".config", "shoplist", "config.yaml"), "log:\n  level: warn\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load("/nonexistent/shoplist.yaml")
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "listen: [unterminated\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "shoplist.yaml"), "listen: \":9000\"\nlog:\n  level: warn\n")
	t.Setenv(EnvListen, ":7000")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvDBTimeout, "250ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.Timeout)
}

func TestLoad_BadEnvTimeout(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDBTimeout, "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_ExpandsSQLitePath(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvDBDSN, "~/data/shop.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "shop.db"), cfg.Database.DSN)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"zero timeout", func(c *Config) { c.Database.Timeout = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"listen without port", func(c *Config) { c.Listen = "localhost" }},
		{"unbracketed ipv6", func(c *Config) { c.Listen = "::1:8080" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestValidate_AcceptsListenAddresses(t *testing.T) {
	for _, addr := range []string{"0.0.0.0:5001", ":9000", "localhost:80", "[::1]:8080", "[::]:5001", "[fe80::1%eth0]:8080"} {
		t.Run(addr, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Listen = addr
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/shopper")
	t.Setenv("SHOPLIST_TEST_DIR", "/srv/shop")

	assert.Equal(t, "/home/shopper/x.db", ExpandPath("~/x.db"))
	assert.Equal(t, "/srv/shop/x.db", ExpandPath("$SHOPLIST_TEST_DIR/x.db"))
	assert.Equal(t, "relative.db", ExpandPath("relative.db"))
	assert.Equal(t, "", ExpandPath(""))
}
