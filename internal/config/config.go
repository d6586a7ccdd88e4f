// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"time"

	"github.com/openskies/allskyd/internal/astro"
	"github.com/openskies/allskyd/internal/darkframe"
	"github.com/openskies/allskyd/internal/exposure"
)

// Config is the full configuration surface consumed by the daemon.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	Exposure ExposureConfig `mapstructure:"exposure"`
	Dark     DarkConfig     `mapstructure:"dark"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// SiteConfig locates the observatory.
type SiteConfig struct {
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// ExposureConfig holds the tuned curve parameters.
type ExposureConfig struct {
	DayMax          time.Duration `mapstructure:"day_max"`
	NightMax        time.Duration `mapstructure:"night_max"`
	TwilightLowDeg  float64       `mapstructure:"twilight_low"`
	TwilightHighDeg float64       `mapstructure:"twilight_high"`
	CrossoverDeg    float64       `mapstructure:"crossover"`
	DualSensor      bool          `mapstructure:"dual_sensor"`
}

// DarkConfig controls dark-frame subtraction.
type DarkConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CaptureConfig controls the capture loop.
type CaptureConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	OutputDir    string        `mapstructure:"output_dir"`
	Driver       string        `mapstructure:"driver"`
}

// ServerConfig controls the operational HTTP surface.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks cross-field constraints. Curve-specific constraints
// are re-checked by exposure.NewCurve; this catches configuration
// mistakes before any hardware is touched.
func (c *Config) Validate() error {
	if c.Site.Latitude < -90 || c.Site.Latitude > 90 {
		return fmt.Errorf("site latitude %.4f out of range [-90, 90]", c.Site.Latitude)
	}
	if c.Site.Longitude < -180 || c.Site.Longitude > 180 {
		return fmt.Errorf("site longitude %.4f out of range [-180, 180]", c.Site.Longitude)
	}
	if c.Capture.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", c.Capture.TickInterval)
	}
	if c.Capture.TickInterval < c.Exposure.NightMax {
		return fmt.Errorf("tick interval %v shorter than the night exposure %v: cycles would always coalesce",
			c.Capture.TickInterval, c.Exposure.NightMax)
	}
	if c.Capture.OutputDir == "" {
		return fmt.Errorf("output dir must be set")
	}
	if c.Dark.CacheTTL <= 0 {
		return fmt.Errorf("dark cache TTL must be positive, got %v", c.Dark.CacheTTL)
	}

	if _, err := exposure.NewCurve(c.CurveConfig()); err != nil {
		return fmt.Errorf("exposure curve: %w", err)
	}

	return nil
}

// Observer returns the configured site as an astro.Observer.
func (c *Config) Observer() astro.Observer {
	return astro.Observer{
		LatDeg: c.Site.Latitude,
		LonDeg: c.Site.Longitude,
		Name:   c.Site.Name,
	}
}

// CurveConfig returns the exposure curve parameters.
func (c *Config) CurveConfig() exposure.Config {
	return exposure.Config{
		DayMaxExposure:   c.Exposure.DayMax,
		NightMaxExposure: c.Exposure.NightMax,
		TwilightLowDeg:   c.Exposure.TwilightLowDeg,
		TwilightHighDeg:  c.Exposure.TwilightHighDeg,
		CrossoverDeg:     c.Exposure.CrossoverDeg,
		DualSensor:       c.Exposure.DualSensor,
	}
}

// DarkFrameConfig returns the dark-frame gate parameters.
func (c *Config) DarkFrameConfig() darkframe.Config {
	return darkframe.Config{
		Enabled:  c.Dark.Enabled,
		CacheTTL: c.Dark.CacheTTL,
	}
}
