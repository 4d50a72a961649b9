// Package config loads hexbin settings from HEXBIN_* environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all command configuration.
type Config struct {
	Pipeline PipelineConfig
	Logging  LogConfig
	Metrics  MetricsConfig
}

// PipelineConfig sizes the rings and bulk chunks.
type PipelineConfig struct {
	BufferSize int `envconfig:"HEXBIN_BUFFER_SIZE" default:"512"`
	ChunkSize  int `envconfig:"HEXBIN_CHUNK_SIZE" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"HEXBIN_LOG_LEVEL" default:"warn"`
	Development bool   `envconfig:"HEXBIN_LOG_DEV" default:"false"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	// File receives metrics in the Prometheus text format after the run.
	// Empty disables the export.
	File string `envconfig:"HEXBIN_METRICS_FILE"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			BufferSize: 512,
		},
		Logging: LogConfig{
			Level: "warn",
		},
	}
}
