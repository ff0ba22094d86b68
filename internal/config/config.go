// This file defines the configuration structure for the application.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Ingest struct {
		// Workers bounds how many accounts of one job run in parallel.
		Workers int `mapstructure:"workers"`
		// Provider selects the registered metadata provider.
		Provider string `mapstructure:"provider"`
		// RetentionMinutes is how long terminal jobs stay pollable in
		// memory before the prune job evicts them.
		RetentionMinutes int `mapstructure:"retention_minutes"`
		// PruneIntervalMinutes is how often the prune job runs; 0
		// disables it.
		PruneIntervalMinutes int `mapstructure:"prune_interval_minutes"`
		// DevMode swaps in the mock provider and the simulated pipeline.
		DevMode bool `mapstructure:"dev_mode"`
	} `mapstructure:"ingest"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")

	// Environment variable overrides, e.g. TOKSCRIBE_DATABASE_PATH
	// overrides the `database.path` key.
	viper.SetEnvPrefix("TOKSCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", 8080)
	viper.SetDefault("database.path", "./tokscribe.db")
	viper.SetDefault("ingest.workers", 3)
	viper.SetDefault("ingest.provider", "tokcdn")
	viper.SetDefault("ingest.retention_minutes", 1440)
	viper.SetDefault("ingest.prune_interval_minutes", 15)
	viper.SetDefault("ingest.dev_mode", false)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults and env overrides.
		} else {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
