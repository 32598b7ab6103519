package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambiyansyah-risyal/familysearch"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsclient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader(WithEnvPrefix("FSTEST_DEFAULTS_")).Load()
	require.NoError(t, err)

	assert.Equal(t, "sandbox", cfg.Environment)
	assert.Equal(t, familysearch.DefaultDiscoveryPath, cfg.DiscoveryPath)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, familysearch.DefaultMaxRedirects, cfg.MaxRedirects)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoadPriority(t *testing.T) {
	path := writeFile(t, `
environment: production
developer_key: file-key
timeout: 5s
log_level: debug
`)
	t.Setenv("FSTEST_PRIO_DEVELOPER_KEY", "env-key")
	t.Setenv("FSTEST_PRIO_MAX_REDIRECTS", "2")

	cfg, err := NewLoader(
		WithFile(path),
		WithEnvPrefix("FSTEST_PRIO_"),
		WithOverrides(map[string]any{"log_level": "warn"}),
	).Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment, "file overrides defaults")
	assert.Equal(t, "env-key", cfg.DeveloperKey, "env overrides file")
	assert.Equal(t, 2, cfg.MaxRedirects)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel, "overrides win")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(WithFile(filepath.Join(t.TempDir(), "missing.yaml"))).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load file")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Environment:   "sandbox",
			DiscoveryPath: familysearch.DefaultDiscoveryPath,
			Timeout:       time.Second,
			MaxRedirects:  3,
			LogLevel:      "info",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "qa" }, wantErr: "Environment"},
		{name: "relative base URL", mutate: func(c *Config) { c.BaseURL = "/api" }, wantErr: "BaseURL"},
		{name: "absolute base URL", mutate: func(c *Config) { c.BaseURL = "http://localhost:8080" }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "Timeout"},
		{name: "too many redirects", mutate: func(c *Config) { c.MaxRedirects = 50 }, wantErr: "MaxRedirects"},
		{name: "redirects disabled", mutate: func(c *Config) { c.MaxRedirects = -1 }},
		{name: "negative redirects", mutate: func(c *Config) { c.MaxRedirects = -2 }, wantErr: "MaxRedirects"},
		{name: "rate without burst", mutate: func(c *Config) { c.RateLimit = 5 }, wantErr: "RateBurst"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LogLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionsBuildClient(t *testing.T) {
	cfg := &Config{
		Environment:   "production",
		BaseURL:       "http://localhost:9999",
		DiscoveryPath: "/meta",
		AccessToken:   "tok",
		DeveloperKey:  "key",
		Timeout:       time.Second,
		MaxRedirects:  1,
		RateLimit:     10,
		RateBurst:     2,
		LogLevel:      "debug",
		Debug:         true,
	}

	var buf bytes.Buffer
	client := familysearch.New(cfg.Options(cfg.Logger(&buf))...)

	require.True(t, client.IsValid(), "validation error: %v", client.ValidationError())
	assert.Equal(t, familysearch.Production, client.Environment())
	assert.Equal(t, "http://localhost:9999", client.BaseURL())
	assert.Equal(t, "tok", client.Token())
	assert.Equal(t, "key", client.DeveloperKey())
}
