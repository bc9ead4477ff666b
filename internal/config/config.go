package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for a feynman session.
// Values are populated from .feynman.yaml, FEYNMAN_* env vars, and CLI flags.
type Config struct {
	DBPath   string  `mapstructure:"db_path"`
	Jitter   float64 `mapstructure:"jitter"`
	DueLimit int     `mapstructure:"due_limit"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("db_path", defaultDBPath())
	viper.SetDefault("jitter", 1.0)
	viper.SetDefault("due_limit", 5)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "feynman.db"
	}
	return filepath.Join(home, ".feynman", "feynman.db")
}
