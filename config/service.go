package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/settings"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ServiceConfig carries the daemon's identity and logging configuration.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the service configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "minotaur"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the service configuration.
func (c *ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.InvalidConfig("service", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.InvalidConfig("logging", err)
	}
	return nil
}

// FromSettings overlays identity and logging values from the layered store.
func (c *ServiceConfig) FromSettings(store *settings.Store) {
	if v := store.GetString(settings.KeyServiceName); v != "" {
		c.Name = v
	}
	if v := store.GetString(settings.KeyEnvironment); v != "" {
		c.Environment = v
	}
	if v := store.GetString(settings.KeyLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := store.GetString(settings.KeyLogFormat); v != "" {
		c.Logging.Format = v
	}
}
