// Package config loads larder's runtime configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ImportConfig controls recipe document imports.
type ImportConfig struct {
	Workers int `mapstructure:"workers"`
}

// WatchConfig controls the import directory watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// MinDebounce is the shortest accepted watch.debounce.
const MinDebounce = 10 * time.Millisecond

// Config holds all runtime configuration for larder.
// Values are populated from .larder.yaml, LARDER_* env vars, and CLI flags.
type Config struct {
	DBPath      string        `mapstructure:"db_path"`
	LockDir     string        `mapstructure:"lock_dir"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	EventsPath  string        `mapstructure:"events_path"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
	Import      ImportConfig  `mapstructure:"import"`
	Watch       WatchConfig   `mapstructure:"watch"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("db_path", "larder.db")
	viper.SetDefault("lock_dir", ".larder-locks")
	viper.SetDefault("lock_timeout", 5*time.Second)
	viper.SetDefault("events_path", "")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("import.workers", 4)
	viper.SetDefault("watch.debounce", 500*time.Millisecond)
	viper.SetDefault("metrics.addr", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Import.Workers < 1 {
		return Config{}, fmt.Errorf("config: import.workers must be at least 1, got %d", cfg.Import.Workers)
	}
	if cfg.LockTimeout < 0 {
		return Config{}, fmt.Errorf("config: lock_timeout must not be negative, got %s", cfg.LockTimeout)
	}
	if cfg.Watch.Debounce < MinDebounce {
		return Config{}, fmt.Errorf("config: watch.debounce must be at least %s, got %s", MinDebounce, cfg.Watch.Debounce)
	}
	return cfg, nil
}
