package config

import "time"

// Config represents the complete application configuration. Values come
// from the config file, RAIDLENS_* environment variables, and defaults
// set during CLI initialization, in that order of precedence.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Tables  TablesConfig  `mapstructure:"tables"`
}

// APIConfig contains credentials and tuning for the combat-log service.
type APIConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	TokenURL        string        `mapstructure:"token_url"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitMargin float64       `mapstructure:"rate_limit_margin"`
	PageLimit       int           `mapstructure:"page_limit"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration.
// Valid levels: trace, debug, info, warn, error.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// IngestConfig tunes the report ingestion pipeline.
type IngestConfig struct {
	// Workers bounds how many fights are processed concurrently. All
	// workers still share one rate budget, so this controls memory and
	// pipelining, not request rate.
	Workers int `mapstructure:"workers"`

	// TopCancelled caps cancelled-cast rows kept per player.
	TopCancelled int `mapstructure:"top_cancelled"`
}

// TablesConfig points at an optional YAML overlay that extends the
// built-in cooldown, DoT, phase, and rotation tables.
type TablesConfig struct {
	OverlayPath string `mapstructure:"overlay_path"`
}
