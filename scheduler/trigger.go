package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger decides when a job fires: either a fixed interval or a cron
// expression.
type Trigger struct {
	interval time.Duration
	spec     string
}

// Interval creates a trigger that fires every d.
func Interval(d time.Duration) Trigger {
	return Trigger{interval: d}
}

// Cron creates a trigger from a standard 5-field cron expression
// (with optional @every/@hourly style descriptors).
func Cron(spec string) Trigger {
	return Trigger{spec: spec}
}

// IsZero reports whether the trigger is unset.
func (t Trigger) IsZero() bool {
	return t.interval == 0 && t.spec == ""
}

// String describes the trigger for logs.
func (t Trigger) String() string {
	if t.spec != "" {
		return fmt.Sprintf("cron(%s)", t.spec)
	}
	return fmt.Sprintf("interval(%s)", t.interval)
}

// Schedule resolves the trigger into a cron.Schedule.
func (t Trigger) Schedule() (cron.Schedule, error) {
	if t.spec != "" {
		schedule, err := cron.ParseStandard(t.spec)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", t.spec, err)
		}
		return schedule, nil
	}
	if t.interval <= 0 {
		return nil, fmt.Errorf("trigger interval must be positive (got: %v)", t.interval)
	}
	return cron.Every(t.interval), nil
}
