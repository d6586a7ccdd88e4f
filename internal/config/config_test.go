package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openskies/allskyd/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	// An explicit path that does not exist is an error; load with search
	// paths instead by pointing at an empty temp config.
	require.Error(t, err)

	path := writeConfig(t, "")
	cfg, err = config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultDayMaxExposure, cfg.Exposure.DayMax)
	assert.Equal(t, config.DefaultNightMaxExposure, cfg.Exposure.NightMax)
	assert.Equal(t, config.DefaultTwilightLowDeg, cfg.Exposure.TwilightLowDeg)
	assert.Equal(t, config.DefaultTwilightHighDeg, cfg.Exposure.TwilightHighDeg)
	assert.True(t, cfg.Exposure.DualSensor)
	assert.True(t, cfg.Dark.Enabled)
	assert.Equal(t, config.DefaultTickInterval, cfg.Capture.TickInterval)
	assert.Equal(t, "sim", cfg.Capture.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
site:
  name: ridge observatory
  latitude: 35.4
  longitude: -116.9
exposure:
  day_max: 50ms
  night_max: 90s
  twilight_low: -9
  twilight_high: 4
dark:
  enabled: false
capture:
  tick_interval: 2m
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ridge observatory", cfg.Site.Name)
	assert.Equal(t, 35.4, cfg.Site.Latitude)
	assert.Equal(t, 50*time.Millisecond, cfg.Exposure.DayMax)
	assert.Equal(t, 90*time.Second, cfg.Exposure.NightMax)
	assert.Equal(t, -9.0, cfg.Exposure.TwilightLowDeg)
	assert.False(t, cfg.Dark.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Capture.TickInterval)

	obs := cfg.Observer()
	assert.Equal(t, 35.4, obs.LatDeg)
	assert.Equal(t, -116.9, obs.LonDeg)
	assert.Equal(t, "ridge observatory", obs.Name)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "latitude out of range",
			yaml: "site:\n  latitude: 95\n",
		},
		{
			name: "inverted twilight band",
			yaml: "exposure:\n  twilight_low: 6\n  twilight_high: -6\n",
		},
		{
			name: "night max not above day max",
			yaml: "exposure:\n  day_max: 60s\n  night_max: 30s\n",
		},
		{
			name: "tick shorter than night exposure",
			yaml: "capture:\n  tick_interval: 10s\n",
		},
		{
			name: "zero dark TTL",
			yaml: "dark:\n  cache_ttl: 0s\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ALLSKYD_SITE_LATITUDE", "51.5")

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 51.5, cfg.Site.Latitude)
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allskyd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}
