// Package telemetry reports the daemon's failures to Sentry and exposes its
// Prometheus metrics and health over a small ops HTTP endpoint.
package telemetry

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"

	"github.com/minotaur-io/minotaur/component"
	"github.com/minotaur-io/minotaur/logger"
)

// Telemetry manages the Sentry client and the ops endpoint as one component.
type Telemetry struct {
	cfg     Config
	log     *logger.Logger
	ops     *opsServer
	enabled bool
	started bool

	// set before Start, applied to the ops endpoint when it comes up
	healthSource func(ctx context.Context) []component.Health
	versionInfo  any
}

var _ component.Component = (*Telemetry)(nil)

// New creates the telemetry component. An empty DSN disables error reporting
// but leaves the ops endpoint available.
func New(cfg Config, log *logger.Logger) (*Telemetry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("telemetry config: %w", err)
	}
	return &Telemetry{
		cfg: cfg,
		log: log.WithComponent("telemetry"),
	}, nil
}

// Name returns the component name.
func (t *Telemetry) Name() string { return "telemetry" }

// Start initializes the Sentry client and starts the ops endpoint.
func (t *Telemetry) Start(ctx context.Context) error {
	if t.cfg.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         t.cfg.DSN,
			Environment: t.cfg.Environment,
			Release:     t.cfg.Release,
			Debug:       t.cfg.Debug,
			SampleRate:  t.cfg.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		t.enabled = true
		t.log.Info("Error reporting enabled", map[string]interface{}{
			"environment": t.cfg.Environment,
			"release":     t.cfg.Release,
		})
	} else {
		t.log.Info("Error reporting disabled (no DSN)")
	}

	if t.cfg.OpsPort > 0 {
		t.ops = newOpsServer(t.cfg, t.enabled, t.log)
		t.ops.setHealthSource(t.healthSource)
		t.ops.setVersionInfo(t.versionInfo)
		if err := t.ops.start(); err != nil {
			return err
		}
	}

	t.started = true
	return nil
}

// Stop shuts down the ops endpoint and flushes buffered Sentry events.
func (t *Telemetry) Stop(ctx context.Context) error {
	if !t.started {
		return nil
	}
	t.started = false

	var err error
	if t.ops != nil {
		err = t.ops.stop(ctx)
		t.ops = nil
	}

	if t.enabled {
		if !sentry.Flush(t.cfg.FlushTimeout) {
			t.log.Warn("Sentry flush timed out", map[string]interface{}{
				"timeout": t.cfg.FlushTimeout.String(),
			})
		}
	}
	return err
}

// Health reports the component health.
func (t *Telemetry) Health(ctx context.Context) component.Health {
	if !t.started {
		return component.Health{
			Name:    t.Name(),
			Status:  component.StatusUnhealthy,
			Message: "telemetry not started",
		}
	}
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

// SetHealthSource wires the ops endpoint's /healthz to the component registry.
func (t *Telemetry) SetHealthSource(fn func(ctx context.Context) []component.Health) {
	t.healthSource = fn
	if t.ops != nil {
		t.ops.setHealthSource(fn)
	}
}

// SetVersionInfo sets the payload the ops endpoint serves at /version.
func (t *Telemetry) SetVersionInfo(info any) {
	t.versionInfo = info
	if t.ops != nil {
		t.ops.setVersionInfo(info)
	}
}

// Enabled reports whether error reporting is active.
func (t *Telemetry) Enabled() bool { return t.enabled }

// CaptureError reports err to Sentry with the given tags and logs it.
func (t *Telemetry) CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	t.log.WithError(err).Error("Captured error", toFields(tags))
	if !t.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value under the given scope.
func (t *Telemetry) CapturePanic(recovered any, scope string) {
	PanicCounter.WithLabelValues(scope).Inc()
	t.log.Error("Recovered panic", map[string]interface{}{
		"scope": scope,
		"panic": fmt.Sprintf("%v", recovered),
	})
	if !t.enabled {
		return
	}
	sentry.WithScope(func(s *sentry.Scope) {
		s.SetTag("scope", scope)
		sentry.CurrentHub().Recover(recovered)
	})
}

func toFields(tags map[string]string) map[string]interface{} {
	fields := make(map[string]interface{}, len(tags))
	for k, v := range tags {
		fields[k] = v
	}
	return fields
}
