package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration, layered from
// defaults, an optional YAML file, and MARKLENS_* environment variables.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Search   SearchConfig   `mapstructure:"search"`
	Lexicon  LexiconConfig  `mapstructure:"lexicon"`
	Server   ServerConfig   `mapstructure:"server"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RegistryConfig locates the trademark registry and its page elements.
type RegistryConfig struct {
	URL      string          `mapstructure:"url"`
	Headless bool            `mapstructure:"headless"`
	Timing   RegistryTimings `mapstructure:"timing"`
}

// RegistryTimings are the waits observed against the remote site. They are
// tuned to what the registry tolerates; shrinking them trips its
// anti-automation defenses.
type RegistryTimings struct {
	AlertWait      time.Duration `mapstructure:"alert_wait"`
	ResultSettle   time.Duration `mapstructure:"result_settle"`
	RetryPause     time.Duration `mapstructure:"retry_pause"`
	CaptchaRefresh time.Duration `mapstructure:"captcha_refresh"`
	ClickSettle    time.Duration `mapstructure:"click_settle"`
	ModalTimeout   time.Duration `mapstructure:"modal_timeout"`
	CloseSettle    time.Duration `mapstructure:"close_settle"`
	PageSettle     time.Duration `mapstructure:"page_settle"`
}

// SearchConfig shapes a run.
type SearchConfig struct {
	// Classes is a comma-separated Nice class list applied to every search.
	Classes string `mapstructure:"classes"`
	// JitterMin/JitterMax bound the randomized pause between searches.
	JitterMin time.Duration `mapstructure:"jitter_min"`
	JitterMax time.Duration `mapstructure:"jitter_max"`
	// PaceInterval adds token-bucket pacing on top of the jitter.
	PaceInterval time.Duration `mapstructure:"pace_interval"`
}

// LexiconConfig points at an optional YAML lexicon override. Empty means
// the built-in Persian lexicon.
type LexiconConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig contains the operator HTTP server configuration.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port the operator server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig selects where and how the report is written.
type OutputConfig struct {
	// Format is one of table, json, csv, markdown.
	Format string `mapstructure:"format"`
	// Path writes the report to a file instead of stdout when set.
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level.
	// Valid values: SIMPLE, STRUCTURED.
	Profile string `mapstructure:"profile"`
}

// Validate rejects configurations that cannot drive a run.
func (c *Config) Validate() error {
	if c.Registry.URL == "" {
		return fmt.Errorf("registry.url must be set")
	}
	if c.Search.JitterMax < c.Search.JitterMin {
		return fmt.Errorf("search.jitter_max (%s) must not be below search.jitter_min (%s)",
			c.Search.JitterMax, c.Search.JitterMin)
	}
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
