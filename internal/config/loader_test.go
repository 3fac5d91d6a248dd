package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://ipm.ssaa.ir/Search-Trademark", cfg.Registry.URL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Registry.Timing.AlertWait)
	assert.Equal(t, 3*time.Second, cfg.Registry.Timing.RetryPause)
	assert.Equal(t, 15*time.Second, cfg.Registry.Timing.ModalTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Search.JitterMin)
	assert.Equal(t, 3500*time.Millisecond, cfg.Search.JitterMax)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, "localhost:8077", cfg.Server.Addr())
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
registry:
  url: https://registry.example/search
  headless: true
search:
  classes: "3,30,35"
  jitter_min: 100ms
  jitter_max: 200ms
server:
  enabled: true
  port: 9000
`), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://registry.example/search", cfg.Registry.URL)
	assert.True(t, cfg.Registry.Headless)
	assert.Equal(t, "3,30,35", cfg.Search.Classes)
	assert.Equal(t, 100*time.Millisecond, cfg.Search.JitterMin)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "localhost:9000", cfg.Server.Addr())
	// Values the file does not mention keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Registry.Timing.ResultSettle)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("registry.url", "")
	_, err := Load(v)
	assert.ErrorContains(t, err, "registry.url")

	v = viper.New()
	SetDefaults(v)
	v.Set("search.jitter_min", "5s")
	v.Set("search.jitter_max", "1s")
	_, err = Load(v)
	assert.ErrorContains(t, err, "jitter_max")

	v = viper.New()
	SetDefaults(v)
	v.Set("server.enabled", true)
	v.Set("server.port", 0)
	_, err = Load(v)
	assert.ErrorContains(t, err, "out of range")
}

func TestGetFallsBackToDefaults(t *testing.T) {
	Set(nil)
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, "table", cfg.Output.Format)
}
