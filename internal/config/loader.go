package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".allskyd"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for allskyd settings.
const envPrefix = "ALLSKYD"

// Default curve parameters, tuned for the SBIG AllSky 340 pair: the
// color sensor saturates quickly in daylight, the mono sensor wants a
// minute of integration in deep night, and the ramp spans civil
// twilight on both sides of the horizon.
const (
	DefaultDayMaxExposure   = 100 * time.Millisecond
	DefaultNightMaxExposure = 60 * time.Second
	DefaultTwilightLowDeg   = -6.0
	DefaultTwilightHighDeg  = 6.0
	DefaultCrossoverDeg     = 0.0

	DefaultTickInterval = time.Minute
	DefaultDarkCacheTTL = time.Hour
	DefaultOutputDir    = "images"
	DefaultListenAddr   = ":8093"
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file
// path. Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("site.name", "")
	viperCfg.SetDefault("site.latitude", 0.0)
	viperCfg.SetDefault("site.longitude", 0.0)

	viperCfg.SetDefault("exposure.day_max", DefaultDayMaxExposure)
	viperCfg.SetDefault("exposure.night_max", DefaultNightMaxExposure)
	viperCfg.SetDefault("exposure.twilight_low", DefaultTwilightLowDeg)
	viperCfg.SetDefault("exposure.twilight_high", DefaultTwilightHighDeg)
	viperCfg.SetDefault("exposure.crossover", DefaultCrossoverDeg)
	viperCfg.SetDefault("exposure.dual_sensor", true)

	viperCfg.SetDefault("dark.enabled", true)
	viperCfg.SetDefault("dark.cache_ttl", DefaultDarkCacheTTL)

	viperCfg.SetDefault("capture.tick_interval", DefaultTickInterval)
	viperCfg.SetDefault("capture.output_dir", DefaultOutputDir)
	viperCfg.SetDefault("capture.driver", "sim")

	viperCfg.SetDefault("server.listen_addr", DefaultListenAddr)

	viperCfg.SetDefault("log.level", "info")
	viperCfg.SetDefault("log.format", "text")
}
