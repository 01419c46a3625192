// Package config provides centralized configuration management for
// RaidLens. Defaults and environment binding live in the CLI layer; this
// package owns the typed view and the thread-safe current-config handle.
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Load unmarshals the merged viper state (file + env + defaults) into a
// typed Config and installs it as the current configuration. Safe to
// call multiple times, e.g. for config reload.
func Load(ctx context.Context) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	_ = ctx

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe).
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// ValidateAPI checks that the fields needed to talk to the remote
// service are present. Commands that only read the local store skip it.
func (c *Config) ValidateAPI() error {
	if c == nil {
		return errors.New("config not loaded")
	}
	switch {
	case strings.TrimSpace(c.API.Endpoint) == "":
		return errors.New("api.endpoint is required")
	case strings.TrimSpace(c.API.TokenURL) == "":
		return errors.New("api.token_url is required")
	case strings.TrimSpace(c.API.ClientID) == "":
		return errors.New("api.client_id is required")
	case strings.TrimSpace(c.API.ClientSecret) == "":
		return errors.New("api.client_secret is required")
	}
	return nil
}

// DefaultConfigDir returns the XDG-compliant config directory.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir("raidlens")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir("raidlens")
	if strings.TrimSpace(dataDir) == "" {
		return "./raidlens.db"
	}
	return filepath.Join(dataDir, "raidlens.db")
}
