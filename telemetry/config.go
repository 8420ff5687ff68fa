package telemetry

import (
	"fmt"
	"time"

	"github.com/minotaur-io/minotaur/settings"
)

// Config holds error-reporting and ops-endpoint configuration.
type Config struct {
	// DSN is the Sentry project DSN. Empty disables error reporting.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// Environment tags every reported event (development, staging, production).
	Environment string `yaml:"environment" mapstructure:"environment"`

	// Release tags every reported event with the build version.
	Release string `yaml:"release" mapstructure:"release"`

	// Debug enables the Sentry SDK's own debug output.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	// SampleRate is the error event sample rate in [0, 1].
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`

	// FlushTimeout bounds the final event flush during shutdown.
	FlushTimeout time.Duration `yaml:"flush_timeout" mapstructure:"flush_timeout"`

	// OpsPort is the port of the metrics/health HTTP endpoint. 0 disables it.
	OpsPort int `yaml:"ops_port" mapstructure:"ops_port"`

	// OpsBind is the address the ops endpoint binds to.
	OpsBind string `yaml:"ops_bind" mapstructure:"ops_bind"`
}

// ApplyDefaults applies default values to telemetry configuration.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		c.SampleRate = 1
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 2 * time.Second
	}
	if c.OpsBind == "" {
		c.OpsBind = "0.0.0.0"
	}
}

// Validate validates telemetry configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be in [0, 1] (got: %v)", c.SampleRate)
	}
	if c.OpsPort < 0 || c.OpsPort > 65535 {
		return fmt.Errorf("telemetry.ops_port must be a valid port (got: %d)", c.OpsPort)
	}
	return nil
}

// FromSettings overlays DSN and ops port from the layered store.
func (c *Config) FromSettings(store *settings.Store) {
	if dsn := store.GetString(settings.KeySentryDSN); dsn != "" {
		c.DSN = dsn
	}
	if port := store.GetInt(settings.KeyOpsPort); port != 0 {
		c.OpsPort = port
	}
	if env := store.GetString(settings.KeyEnvironment); env != "" {
		c.Environment = env
	}
}
