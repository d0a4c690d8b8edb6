package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the gophblog client.
type Config struct {
	APIBaseURL        string
	DatabasePath      string
	RequestTimeout    time.Duration
	CacheTTL          time.Duration
	SearchDebounce    time.Duration
	RequestsPerSecond float64
	Burst             int
	PageSize          int
	LogLevel          string
	LogFormat         string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:3001"
	c.DatabasePath = "gophblog.db"
	c.RequestTimeout = 10 * time.Second
	c.CacheTTL = 60 * time.Second
	c.SearchDebounce = 500 * time.Millisecond
	c.RequestsPerSecond = 10
	c.Burst = 20
	c.PageSize = 9
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig builds a Config from defaults, environment, JSON file and
// the process command-line flags.
func LoadConfig() *Config {
	return LoadConfigFrom(os.Args[1:])
}

// LoadConfigFrom is LoadConfig with explicit arguments.
// It panics on unreadable files or malformed values.
func LoadConfigFrom(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, args)
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
