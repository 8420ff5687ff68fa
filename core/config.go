package core

import (
	"time"

	"github.com/minotaur-io/minotaur/config"
	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/scheduler"
	"github.com/minotaur-io/minotaur/settings"
	"github.com/minotaur-io/minotaur/telemetry"
	"github.com/minotaur-io/minotaur/version"
)

// Config aggregates the subsystem configurations the engine wires together.
type Config struct {
	Service   config.ServiceConfig `yaml:"service" mapstructure:"service"`
	Kafka     kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Telemetry telemetry.Config     `yaml:"telemetry" mapstructure:"telemetry"`
	Scheduler scheduler.Config     `yaml:"scheduler" mapstructure:"scheduler"`

	// GracefulTimeout bounds shutdown after a stop signal.
	GracefulTimeout time.Duration `yaml:"graceful_timeout" mapstructure:"graceful_timeout"`

	// RetryAttempts bounds how often a retryable pipeline failure is retried
	// within one tick.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`

	// RetryBackoff is the base delay between pipeline retries.
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// ApplyDefaults applies default values to engine configuration.
func (c *Config) ApplyDefaults() {
	c.Service.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
	if c.GracefulTimeout <= 0 {
		c.GracefulTimeout = 30 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
}

// Validate validates engine configuration.
func (c *Config) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return errors.InvalidConfig("kafka", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return errors.InvalidConfig("telemetry", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return errors.InvalidConfig("scheduler", err)
	}
	return nil
}

// ConfigFromSettings builds the engine configuration from the layered
// settings store: defaults first, then per-key overlays, then validation.
func ConfigFromSettings(store *settings.Store) (Config, error) {
	cfg := Config{}
	cfg.ApplyDefaults()

	cfg.Service.FromSettings(store)
	cfg.Kafka.FromSettings(store)
	cfg.Telemetry.FromSettings(store)
	cfg.Scheduler.FromSettings(store)

	if cfg.Service.Version == "" {
		cfg.Service.Version = version.Get().Version
	}
	if cfg.Telemetry.Release == "" {
		cfg.Telemetry.Release = cfg.Service.Version
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
