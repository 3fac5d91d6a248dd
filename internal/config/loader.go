// Package config provides centralized configuration management: built-in
// defaults, an optional YAML config file, and MARKLENS_* environment
// variables, in increasing precedence.
package config

import (
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every configuration default on the viper instance.
func SetDefaults(v *viper.Viper) {
	// Registry defaults
	v.SetDefault("registry.url", "https://ipm.ssaa.ir/Search-Trademark")
	v.SetDefault("registry.headless", false)
	v.SetDefault("registry.timing.alert_wait", "1500ms")
	v.SetDefault("registry.timing.result_settle", "2s")
	v.SetDefault("registry.timing.retry_pause", "3s")
	v.SetDefault("registry.timing.captcha_refresh", "1500ms")
	v.SetDefault("registry.timing.click_settle", "3s")
	v.SetDefault("registry.timing.modal_timeout", "15s")
	v.SetDefault("registry.timing.close_settle", "1s")
	v.SetDefault("registry.timing.page_settle", "4s")

	// Search defaults
	v.SetDefault("search.classes", "")
	v.SetDefault("search.jitter_min", "1500ms")
	v.SetDefault("search.jitter_max", "3500ms")
	v.SetDefault("search.pace_interval", "0s")

	// Lexicon defaults
	v.SetDefault("lexicon.path", "")

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8077)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Output defaults
	v.SetDefault("output.format", "table")
	v.SetDefault("output.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")
}

// Load decodes the viper state into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Set installs the active application configuration.
func Set(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// Get returns the active application configuration, or a validated default
// configuration when none has been loaded.
func Get() *Config {
	configMu.RLock()
	cfg := appConfig
	configMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// Defaults always decode; reaching this means the defaults above
		// are broken.
		panic(err)
	}
	Set(cfg)
	return cfg
}
