// Package config loads runtime configuration for the feed client.
//
// Sources and precedence: built-in defaults, then an optional JSON file
// (-c/-config), then command-line flags.
package config

import "time"

// Config holds runtime settings for the feed client.
type Config struct {
	ServerBaseURL  string
	DatabaseDSN    string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "kitafeed.db"
	c.RequestTimeout = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
