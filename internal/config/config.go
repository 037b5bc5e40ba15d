// Package config holds the YAML application configuration plus the
// centralized constants (log keys, messages, defaults) shared across the
// service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API and feed
// endpoints. /health is always unauthenticated.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and feed server.
	Listen string `yaml:"listen"`

	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path"`

	// Locale selects the language for sidebar and feed labels ("en", "fr").
	Locale string `yaml:"locale"`

	// FeedCron is a cron-style schedule for regenerating the cached ICS
	// feeds (e.g. "*/15 * * * *").
	FeedCron string `yaml:"feed_cron"`

	// WindowMinutes is the default conflict buffer window when a request
	// does not specify one.
	WindowMinutes int `yaml:"window_minutes"`

	// HorizonDays is how far ahead the ICS feed projects transitions and
	// events.
	HorizonDays int `yaml:"horizon_days"`

	// RosterPath, if set, points at a .vcf contact export used to seed
	// parent records. May also be an http(s) URL.
	RosterPath string `yaml:"roster_path"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        DefaultListen,
		DBPath:        DefaultDBPath,
		Locale:        DefaultLocale,
		FeedCron:      DefaultFeedCron,
		WindowMinutes: DefaultWindowMinutes,
		HorizonDays:   DefaultHorizonDays,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.FeedCron == "" {
		c.FeedCron = DefaultFeedCron
	}
	// Zero means unset here; an explicit no-buffer window is a per-request
	// choice, not a config default. Negative values clamp to zero.
	if c.WindowMinutes == 0 {
		c.WindowMinutes = DefaultWindowMinutes
	}
	if c.WindowMinutes < 0 {
		c.WindowMinutes = 0
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
}

// Load reads the config file at path. A missing file is not an error: the
// defaults are returned, matching first-run behavior.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigParse, err)
	}

	cfg.Normalize()
	return cfg, nil
}
