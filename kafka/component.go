package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/minotaur-io/minotaur/component"
	"github.com/minotaur-io/minotaur/logger"
)

// Runner is a push-mode consume loop bound to a topic. The component runs one
// goroutine per runner for its lifetime and closes the runner at shutdown.
type Runner interface {
	Consume(ctx context.Context) error
	Topic() string
	Close() error
}

// ProducerCloser is the producer surface the component owns at shutdown.
type ProducerCloser interface {
	Close() error
}

// Component manages the Kafka side of the daemon: it runs registered consume
// loops, closes the shared producer on stop, and reports broker connectivity
// through the health endpoint.
type Component struct {
	cfg      Config
	log      *logger.Logger
	producer ProducerCloser
	runners  []Runner
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the Kafka lifecycle component. Runners and the shared
// producer are registered before Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("kafka"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// SetProducer hands the shared producer to the component, which closes it
// when the component stops.
func (c *Component) SetProducer(p ProducerCloser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// AddRunner registers a consume loop to run while the component is started.
func (c *Component) AddRunner(r Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runners = append(c.runners, r)
}

// Topics lists the topics of the registered runners.
func (c *Component) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.runners))
	for _, r := range c.runners {
		topics = append(topics, r.Topic())
	}
	return topics
}

// Start launches one consume goroutine per registered runner. The loops run
// until Stop cancels them.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	// Consume loops outlive the start context; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	topics := make([]string, 0, len(c.runners))
	for _, r := range c.runners {
		topics = append(topics, r.Topic())
		c.wg.Add(1)
		go func(r Runner) {
			defer c.wg.Done()
			if err := r.Consume(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.WithError(err).Error("Consume loop stopped", map[string]interface{}{
					"topic": r.Topic(),
				})
			}
		}(r)
	}

	c.running = true
	c.log.Info("Kafka component started", map[string]interface{}{
		"brokers": c.cfg.Brokers,
		"topics":  topics,
	})
	return nil
}

// Stop cancels the consume loops, waits for them to drain, and closes the
// runners and the shared producer. The first close error is returned.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.wg.Wait()

	var first error
	for _, r := range c.runners {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.runners = nil

	if c.producer != nil {
		if err := c.producer.Close(); err != nil && first == nil {
			first = err
		}
		c.producer = nil
	}

	c.running = false
	c.log.Info("Kafka component stopped")
	return first
}

// Health dials the first broker. An unreachable broker is unhealthy; a broker
// that connects but cannot serve metadata is degraded.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}

	if !running {
		h.Status = component.StatusUnhealthy
		h.Message = "kafka not started"
		return h
	}
	if len(c.cfg.Brokers) == 0 {
		h.Status = component.StatusUnhealthy
		h.Message = "no brokers configured"
		return h
	}

	dialer, err := NewDialer(&c.cfg)
	if err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = "dialer: " + err.Error()
		return h
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = "broker unreachable: " + err.Error()
		return h
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		h.Status = component.StatusDegraded
		h.Message = "broker metadata: " + err.Error()
	}
	return h
}
