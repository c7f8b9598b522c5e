package config

import (
	"fmt"
	"os"

	"market-pipeline/src/helpers"
	"market-pipeline/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	modelConfig := defaults()
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	if err := config.Validate(); err != nil {
		return nil, &helpers.ConfigurationError{PipelineError: helpers.PipelineError{
			Message: "config validation failed", Cause: err,
		}}
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// defaults returns the config baseline overridden by the YAML file.
func defaults() models.MConfig {
	return models.MConfig{
		Name:     "market-pipeline",
		Host:     "127.0.0.1",
		Port:     8090,
		LogLevel: "INFO",
		Storage: models.MStorageConfig{
			DBType:        "sqlite",
			DBPath:        "market-pipeline.db",
			RetentionDays: 7,
		},
		Backend: models.MBackendConfig{
			SessionPath:    "/api/config/session",
			CandlesPath:    "/api/marketdata/candles",
			RequestTimeout: 10,
			MaxRetries:     2,
		},
		Source: models.MSourceConfig{
			Mode:           "synthetic",
			TickIntervalMs: 1000,
			QueueSize:      256,
		},
		Session: models.MSessionConfig{
			FallbackStart:   "09:00",
			FallbackEnd:     "15:30",
			RetryOnFallback: true,
		},
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType != "sqlite" && c.Storage.DBType != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be greater than 0")
	}

	// Validate Backend configuration
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url cannot be empty")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Source configuration
	switch c.Source.Mode {
	case "live":
		if c.Source.WsURL == "" {
			return fmt.Errorf("ws_url is required for live source mode")
		}
	case "synthetic":
		if c.Source.TickIntervalMs <= 0 {
			return fmt.Errorf("tick interval must be greater than 0")
		}
	default:
		return fmt.Errorf("unsupported source mode: %s", c.Source.Mode)
	}
	if c.Source.QueueSize <= 0 {
		return fmt.Errorf("flush queue size must be greater than 0")
	}

	// Validate Session configuration
	if c.Session.FallbackStart == "" || c.Session.FallbackEnd == "" {
		return fmt.Errorf("session fallback window cannot be empty")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
