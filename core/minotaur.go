package core

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/minotaur-io/minotaur/component"
	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/kafka/consumer"
	"github.com/minotaur-io/minotaur/kafka/producer"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/pipeline"
	"github.com/minotaur-io/minotaur/reader"
	"github.com/minotaur-io/minotaur/scheduler"
	"github.com/minotaur-io/minotaur/settings"
	"github.com/minotaur-io/minotaur/telemetry"
	"github.com/minotaur-io/minotaur/version"
)

// Minotaur is the daemon engine. It owns the component lifecycle and, on
// every scheduler tick, fans reader batches out to the pipelines.
type Minotaur struct {
	cfg       Config
	store     *settings.Store
	log       *logger.Logger
	registry  *component.Registry
	scheduler *scheduler.Scheduler
	kafka     *kafka.Component
	reporter  scheduler.Reporter

	mu        sync.RWMutex
	readers   []reader.Reader
	pipelines []pipeline.Pipeline
	publisher *producer.EventPublisher
}

// New constructs the engine from the layered settings store. Components
// are registered in start order: telemetry, kafka, scheduler.
func New(store *settings.Store, log *logger.Logger) (*Minotaur, error) {
	cfg, err := ConfigFromSettings(store)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(cfg.Scheduler, tel, log)
	if err != nil {
		return nil, err
	}

	m := &Minotaur{
		cfg:       cfg,
		store:     store,
		log:       log.WithComponent("core"),
		registry:  component.NewRegistry(),
		scheduler: sched,
		kafka:     kafka.NewComponent(cfg.Kafka, log),
		reporter:  tel,
	}

	tel.SetVersionInfo(version.Get())
	tel.SetHealthSource(m.registry.HealthAll)

	if err := m.registry.Register(tel); err != nil {
		return nil, err
	}
	if err := m.registry.Register(m.kafka); err != nil {
		return nil, err
	}
	if err := m.registry.Register(sched); err != nil {
		return nil, err
	}
	return m, nil
}

// Settings exposes the layered settings store.
func (m *Minotaur) Settings() *settings.Store { return m.store }

// Config exposes the resolved engine configuration.
func (m *Minotaur) Config() Config { return m.cfg }

// AddReader registers a reader, wrapped with the standard middleware
// chain. Panics inside the reader become empty batches.
func (m *Minotaur) AddReader(r reader.Reader, extra ...reader.Middleware) {
	chain := []reader.Middleware{
		reader.WithLogging(m.log),
		reader.WithMetrics(),
		reader.WithRecovery(m.reporter),
	}
	chain = append(chain, extra...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.readers = append(m.readers, reader.Chain(r, chain...))
}

// AddKafkaReader registers a Kafka reader for topic, sized from settings.
func (m *Minotaur) AddKafkaReader(topic string) error {
	cfg := reader.KafkaConfig{Topic: topic}
	cfg.ApplyDefaults()
	cfg.FromSettings(m.store)

	r, err := reader.NewKafka(m.cfg.Kafka, cfg, m.log)
	if err != nil {
		return err
	}
	m.AddReader(r)
	return nil
}

// AddKafkaHandler registers a push-mode consumer for topic. The kafka
// component runs the consume loop for its lifetime and dispatches every
// message to handler.
func (m *Minotaur) AddKafkaHandler(topic string, handler consumer.MessageHandler) error {
	c, err := consumer.New(m.cfg.Kafka, topic, m.log)
	if err != nil {
		return err
	}
	m.kafka.AddRunner(c.Subscribe(handler))
	return nil
}

// EventPublisher returns the shared publisher for structured events, creating
// it on first use. The kafka component closes the underlying producer at
// shutdown.
func (m *Minotaur) EventPublisher() (*producer.EventPublisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publisher != nil {
		return m.publisher, nil
	}

	prod, err := producer.NewLazy(m.cfg.Kafka, m.log)
	if err != nil {
		return nil, err
	}
	m.kafka.SetProducer(prod)
	m.publisher = producer.NewPublisher(prod, m.cfg.Service.Name, m.log)
	return m.publisher, nil
}

// AddPipeline registers a pipeline, wrapped with the standard middleware
// chain. Retryable failures are retried within the tick; panics become
// pipeline errors without retry.
func (m *Minotaur) AddPipeline(p pipeline.Pipeline, extra ...pipeline.Middleware) {
	chain := []pipeline.Middleware{
		pipeline.WithLogging(m.log),
		pipeline.WithMetrics(),
		pipeline.WithRecovery(m.reporter),
		pipeline.WithRetry(m.cfg.RetryAttempts, m.cfg.RetryBackoff),
	}
	chain = append(chain, extra...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelines = append(m.pipelines, pipeline.Chain(p, chain...))
}

// AddKafkaPipeline registers a pipeline republishing to topic.
func (m *Minotaur) AddKafkaPipeline(topic string, transform pipeline.Transform) error {
	p, err := pipeline.NewKafka(m.cfg.Kafka, pipeline.KafkaConfig{Topic: topic}, transform, m.log)
	if err != nil {
		return err
	}
	m.AddPipeline(p)
	return nil
}

// AddJob schedules a job. A zero trigger means the configured interval.
func (m *Minotaur) AddJob(job scheduler.Job) (string, error) {
	return m.scheduler.AddJob(job)
}

// RegisterDefaultJob schedules Execute on the configured interval.
func (m *Minotaur) RegisterDefaultJob() (string, error) {
	return m.scheduler.AddJob(scheduler.Job{
		Name: "execute",
		Run:  m.Execute,
	})
}

// Execute runs one tick: every reader's batch is handed to every pipeline.
// Failures are reported but never abort the tick; the logging middleware in
// the standard chains already records them, so Execute does not log again.
func (m *Minotaur) Execute(ctx context.Context) error {
	m.mu.RLock()
	readers := make([]reader.Reader, len(m.readers))
	copy(readers, m.readers)
	pipelines := make([]pipeline.Pipeline, len(m.pipelines))
	copy(pipelines, m.pipelines)
	m.mu.RUnlock()

	for _, r := range readers {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		batch, err := r.Read(ctx)
		if err != nil {
			m.reporter.CaptureError(err, map[string]string{
				"reader": r.Name(),
			})
			continue
		}
		if len(batch) == 0 {
			continue
		}

		for _, p := range pipelines {
			if err := p.Process(ctx, batch); err != nil {
				m.reporter.CaptureError(err, map[string]string{
					"pipeline": p.Name(),
					"reader":   r.Name(),
				})
			}
		}
	}
	return nil
}

// Start brings the components up in registration order, blocks until the
// context is canceled or SIGINT/SIGTERM arrives, then shuts down in
// reverse order within the graceful timeout.
func (m *Minotaur) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.startup(ctx); err != nil {
		m.shutdown()
		return err
	}

	m.log.Info("Daemon started", map[string]interface{}{
		"service":     m.cfg.Service.Name,
		"environment": m.cfg.Service.Environment,
		"version":     m.cfg.Service.Version,
		"jobs":        len(m.scheduler.Jobs()),
	})

	<-ctx.Done()
	m.log.Info("Shutdown signal received")
	return m.shutdown()
}

func (m *Minotaur) startup(ctx context.Context) error {
	return m.registry.StartAll(ctx)
}

// shutdown stops components in reverse order, then closes readers and
// pipelines. All errors are collected; the first one is returned.
func (m *Minotaur) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.GracefulTimeout)
	defer cancel()

	var first error
	if err := m.registry.StopAll(ctx); err != nil {
		first = err
	}

	m.mu.Lock()
	readers := m.readers
	pipelines := m.pipelines
	m.readers = nil
	m.pipelines = nil
	m.mu.Unlock()

	for _, r := range readers {
		if err := r.Close(); err != nil {
			m.log.WithError(err).Warn("Reader close failed", map[string]interface{}{
				logger.FieldReader: r.Name(),
			})
			if first == nil {
				first = err
			}
		}
	}
	for _, p := range pipelines {
		if err := p.Close(); err != nil {
			m.log.WithError(err).Warn("Pipeline close failed", map[string]interface{}{
				logger.FieldPipeline: p.Name(),
			})
			if first == nil {
				first = err
			}
		}
	}

	m.log.Info("Daemon stopped")
	return first
}
