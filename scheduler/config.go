package scheduler

import (
	"fmt"
	"time"

	"github.com/minotaur-io/minotaur/settings"
)

// Config holds scheduler configuration.
type Config struct {
	// Interval is the default trigger interval for jobs added without an
	// explicit trigger.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Grace bounds how long Stop waits for in-flight jobs.
	Grace time.Duration `yaml:"grace" mapstructure:"grace"`
}

// ApplyDefaults applies default values to scheduler configuration.
func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.Grace <= 0 {
		c.Grace = 15 * time.Second
	}
}

// Validate validates scheduler configuration.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive (got: %v)", c.Interval)
	}
	if c.Grace <= 0 {
		return fmt.Errorf("scheduler.grace must be positive (got: %v)", c.Grace)
	}
	return nil
}

// FromSettings overlays the default interval from the layered store.
func (c *Config) FromSettings(store *settings.Store) {
	if interval := store.GetDuration(settings.KeySchedulerInterval); interval > 0 {
		c.Interval = interval
	}
}
