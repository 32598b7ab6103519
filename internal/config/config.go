// Package config loads fsclient settings from defaults, a YAML file,
// FAMILYSEARCH_* environment variables and command-line overrides, in
// increasing order of priority.
package config

import (
	"fmt"
	"io"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/ambiyansyah-risyal/familysearch"
)

// Config is the flat settings tree.
type Config struct {
	Environment   string        `koanf:"environment"`
	BaseURL       string        `koanf:"base_url"`
	DiscoveryPath string        `koanf:"discovery_path"`
	AccessToken   string        `koanf:"access_token"`
	DeveloperKey  string        `koanf:"developer_key"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	Timeout       time.Duration `koanf:"timeout"`
	// MaxRedirects of -1 returns redirect responses without following them.
	MaxRedirects  int           `koanf:"max_redirects"`
	RateLimit     float64       `koanf:"rate_limit"`
	RateBurst     int           `koanf:"rate_burst"`
	LogLevel      string        `koanf:"log_level"`
	Debug         bool          `koanf:"debug"`
}

// Defaults returns the values used when no source sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"environment":    string(familysearch.Sandbox),
		"discovery_path": familysearch.DefaultDiscoveryPath,
		"timeout":        "30s",
		"max_redirects":  familysearch.DefaultMaxRedirects,
		"rate_limit":     0.0,
		"rate_burst":     1,
		"log_level":      "info",
		"debug":          false,
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required, validation.In(
			string(familysearch.Production), string(familysearch.Staging), string(familysearch.Sandbox))),
		validation.Field(&c.BaseURL, validation.By(absoluteURL)),
		validation.Field(&c.DiscoveryPath, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond), validation.Max(10*time.Minute)),
		validation.Field(&c.MaxRedirects, validation.Min(-1), validation.Max(20)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.When(c.RateLimit > 0, validation.Required, validation.Min(1))),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "off")),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}

// Logger builds the CLI logger at the configured level.
func (c *Config) Logger(w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "fsclient",
		Level:  hclog.LevelFromString(c.LogLevel),
		Output: w,
	})
}

// Options converts the config into client options. logger may be nil.
func (c *Config) Options(logger hclog.Logger) []familysearch.Option {
	opts := []familysearch.Option{
		familysearch.WithEnvironment(familysearch.Environment(c.Environment)),
		familysearch.WithDiscoveryPath(c.DiscoveryPath),
		familysearch.WithTimeout(c.Timeout),
		familysearch.WithMaxRedirects(c.MaxRedirects),
	}
	if c.BaseURL != "" {
		opts = append(opts, familysearch.WithBaseURL(c.BaseURL))
	}
	if c.AccessToken != "" {
		opts = append(opts, familysearch.WithAccessToken(c.AccessToken))
	}
	if c.DeveloperKey != "" {
		opts = append(opts, familysearch.WithDeveloperKey(c.DeveloperKey))
	}
	if c.RateLimit > 0 {
		opts = append(opts, familysearch.WithRateLimit(c.RateLimit, c.RateBurst))
	}
	if logger != nil {
		opts = append(opts, familysearch.WithLogger(familysearch.NewLogger(logger)))
		if c.Debug {
			opts = append(opts, familysearch.WithDebug())
		}
	}
	return opts
}
