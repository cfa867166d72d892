package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/convoy/logger"
)

// Config is the aggregate orchestrator configuration.
type Config struct {
	// Orchestrator identifies this engine in manifests and logs.
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	// Host configures access to the pipeline host API.
	Host HostConfig `yaml:"host" mapstructure:"host"`
	// Retry configures the fixed-delay retry policy for all remote calls.
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Bus selects the durable store namespaces that receive bundles.
	Bus BusConfig `yaml:"bus" mapstructure:"bus"`
	// Seal configures optional bundle passphrase protection.
	Seal SealConfig `yaml:"seal" mapstructure:"seal"`
	// MaxParallel limits concurrent gatherers (0 = unlimited).
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
	// Logging configures structured logging.
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	// Tracing configures OTLP trace/metric export.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// OrchestratorConfig identifies the orchestrator in the manifest.
type OrchestratorConfig struct {
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	URL  string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
}

// HostConfig configures the pipeline host connection.
type HostConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RetryConfig configures remote-call retries.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"min=0"`
	Delay      time.Duration `yaml:"delay" mapstructure:"delay"`
}

// BusConfig selects the durable store and its two logical packages.
type BusConfig struct {
	StoreID           string `yaml:"store_id" mapstructure:"store_id" validate:"required"`
	PrimaryPackage    string `yaml:"primary_package" mapstructure:"primary_package" validate:"required"`
	QuarantinePackage string `yaml:"quarantine_package" mapstructure:"quarantine_package" validate:"required,nefield=PrimaryPackage"`
}

// SealConfig configures optional bundle sealing.
type SealConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm" validate:"omitempty,oneof=aes-256-gcm chacha20-poly1305"`
}

// TracingConfig configures the OTLP exporters.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure    bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Orchestrator.Name == "" {
		c.Orchestrator.Name = "convoy"
	}
	if c.Host.Timeout <= 0 {
		c.Host.Timeout = 30 * time.Second
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 5
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = 2 * time.Second
	}
	if c.Seal.Algorithm == "" {
		c.Seal.Algorithm = "aes-256-gcm"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = "development"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())
