package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Bus     BusConfig     `mapstructure:"bus"`
	Poll    PollConfig    `mapstructure:"poll"`
	Timing  TimingConfig  `mapstructure:"timing"`
	Devices DevicesConfig `mapstructure:"devices"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Bus drivers
const (
	DriverPeriph = "periph"
	DriverSim    = "sim"
)

type BusConfig struct {
	Driver string `mapstructure:"driver"`
	// Name is handed to the bus registry; empty selects the first bus.
	Name string `mapstructure:"name"`
}

type PollConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type TimingConfig struct {
	ADCConversionDelay time.Duration `mapstructure:"adc_conversion_delay"`
	MuxSettleDelay     time.Duration `mapstructure:"mux_settle_delay"`
}

type DevicesConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
	Definitions []string `mapstructure:"definitions"`
}

// Load reads the YAML file at path. An empty path uses defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults setzen
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("bus.driver", DriverPeriph)
	v.SetDefault("bus.name", "")
	v.SetDefault("poll.enabled", true)
	v.SetDefault("poll.interval", "1s")
	v.SetDefault("timing.adc_conversion_delay", "8ms")
	v.SetDefault("timing.mux_settle_delay", "1ms")
	v.SetDefault("devices.search_paths", []string{"configs/devices"})
	v.SetDefault("devices.definitions", []string{})

	// Environment Variables mit Prefix OMIO_, z.B. OMIO_BUS_DRIVER
	v.SetEnvPrefix("OMIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Bus.Driver {
	case DriverPeriph, DriverSim:
	default:
		return fmt.Errorf("unknown bus driver %q", c.Bus.Driver)
	}
	if c.Poll.Enabled && c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Poll.Interval)
	}
	if c.Timing.ADCConversionDelay < 0 || c.Timing.MuxSettleDelay < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.Level = level

	return cfg.Build()
}
