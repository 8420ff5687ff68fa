package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/pipeline"
	"github.com/minotaur-io/minotaur/reader"
	"github.com/minotaur-io/minotaur/settings"
)

func newTestEngine(t *testing.T, overrides map[string]any) *Minotaur {
	t.Helper()

	initial := settings.Defaults()
	for k, v := range overrides {
		initial[k] = v
	}
	store, err := settings.New(initial, settings.PriorityDefault)
	if err != nil {
		t.Fatalf("settings.New() error = %v", err)
	}

	m, err := New(store, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Keep retry sleeps out of test time.
	m.cfg.RetryBackoff = time.Millisecond
	return m
}

func staticReader(name string, batches ...[]kafka.Message) *reader.Func {
	i := 0
	return &reader.Func{
		ReaderName: name,
		ReadFunc: func(ctx context.Context) ([]kafka.Message, error) {
			if i >= len(batches) {
				return nil, nil
			}
			batch := batches[i]
			i++
			return batch, nil
		},
	}
}

type recordingPipeline struct {
	name    string
	batches [][]kafka.Message
	closed  bool
}

func (p *recordingPipeline) Name() string { return p.name }

func (p *recordingPipeline) Process(ctx context.Context, batch []kafka.Message) error {
	p.batches = append(p.batches, batch)
	return nil
}

func (p *recordingPipeline) Close() error {
	p.closed = true
	return nil
}

func batchOf(values ...string) []kafka.Message {
	batch := make([]kafka.Message, 0, len(values))
	for _, v := range values {
		batch = append(batch, kafka.Message{Value: []byte(v)})
	}
	return batch
}

func TestNewRegistersComponents(t *testing.T) {
	m := newTestEngine(t, nil)

	if m.registry.Get("telemetry") == nil {
		t.Error("telemetry component not registered")
	}
	if m.registry.Get("kafka") == nil {
		t.Error("kafka component not registered")
	}
	if m.registry.Get("scheduler") == nil {
		t.Error("scheduler component not registered")
	}
	if m.cfg.GracefulTimeout != 30*time.Second {
		t.Errorf("GracefulTimeout = %v, want 30s", m.cfg.GracefulTimeout)
	}
}

func TestExecuteFanOut(t *testing.T) {
	m := newTestEngine(t, nil)

	m.AddReader(staticReader("r1", batchOf("a", "b")))
	m.AddReader(staticReader("r2", batchOf("c")))

	p1 := &recordingPipeline{name: "p1"}
	p2 := &recordingPipeline{name: "p2"}
	m.AddPipeline(p1)
	m.AddPipeline(p2)

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, p := range []*recordingPipeline{p1, p2} {
		if len(p.batches) != 2 {
			t.Fatalf("%s received %d batches, want 2", p.name, len(p.batches))
		}
		if len(p.batches[0]) != 2 || len(p.batches[1]) != 1 {
			t.Errorf("%s batch sizes = [%d, %d], want [2, 1]",
				p.name, len(p.batches[0]), len(p.batches[1]))
		}
	}
}

func TestExecuteReaderFailureIsolated(t *testing.T) {
	m := newTestEngine(t, nil)

	m.AddReader(&reader.Func{
		ReaderName: "broken",
		ReadFunc: func(ctx context.Context) ([]kafka.Message, error) {
			return nil, errors.ReaderFailed("broken", fmt.Errorf("no brokers"))
		},
	})
	m.AddReader(staticReader("healthy", batchOf("x")))

	p := &recordingPipeline{name: "p"}
	m.AddPipeline(p)

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(p.batches) != 1 {
		t.Fatalf("pipeline received %d batches, want 1 from the healthy reader", len(p.batches))
	}
}

func TestExecutePipelineFailureIsolated(t *testing.T) {
	m := newTestEngine(t, nil)

	m.AddReader(staticReader("r", batchOf("x")))

	m.AddPipeline(&pipeline.Func{
		PipelineName: "broken",
		ProcessFunc: func(ctx context.Context, batch []kafka.Message) error {
			return errors.PipelineFailed("broken", fmt.Errorf("sink down"))
		},
	})
	healthy := &recordingPipeline{name: "healthy"}
	m.AddPipeline(healthy)

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(healthy.batches) != 1 {
		t.Errorf("healthy pipeline received %d batches, want 1", len(healthy.batches))
	}
}

func TestExecuteEmptyBatchSkipsPipelines(t *testing.T) {
	m := newTestEngine(t, nil)

	m.AddReader(staticReader("empty"))
	p := &recordingPipeline{name: "p"}
	m.AddPipeline(p)

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(p.batches) != 0 {
		t.Errorf("pipeline received %d batches, want 0", len(p.batches))
	}
}

func TestExecuteRecoversReaderPanic(t *testing.T) {
	m := newTestEngine(t, nil)

	m.AddReader(&reader.Func{
		ReaderName: "panicky",
		ReadFunc: func(ctx context.Context) ([]kafka.Message, error) {
			panic("boom")
		},
	})
	p := &recordingPipeline{name: "p"}
	m.AddPipeline(p)

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(p.batches) != 0 {
		t.Errorf("pipeline received %d batches, want 0 after reader panic", len(p.batches))
	}
}

func TestExecuteRetriesPipeline(t *testing.T) {
	m := newTestEngine(t, nil)

	m.AddReader(staticReader("r", batchOf("x")))

	calls := 0
	m.AddPipeline(&pipeline.Func{
		PipelineName: "flaky",
		ProcessFunc: func(ctx context.Context, batch []kafka.Message) error {
			calls++
			if calls < 3 {
				return errors.ConnectionFailed("kafka", fmt.Errorf("transient"))
			}
			return nil
		},
	})

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("pipeline attempts = %d, want 3", calls)
	}
}

type countingReporter struct {
	errors []error
	panics int
}

func (r *countingReporter) CaptureError(err error, tags map[string]string) {
	r.errors = append(r.errors, err)
}

func (r *countingReporter) CapturePanic(recovered any, scope string) {
	r.panics++
}

func TestExecuteReportsReaderFailureOnce(t *testing.T) {
	m := newTestEngine(t, nil)
	rep := &countingReporter{}
	m.reporter = rep

	m.AddReader(&reader.Func{
		ReaderName: "broken",
		ReadFunc: func(ctx context.Context) ([]kafka.Message, error) {
			return nil, errors.ReaderFailed("broken", fmt.Errorf("no brokers"))
		},
	})

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rep.errors) != 1 {
		t.Errorf("captured errors = %d, want exactly 1 per failure", len(rep.errors))
	}
}

func TestExecuteReportsPipelineFailureOnce(t *testing.T) {
	m := newTestEngine(t, nil)
	rep := &countingReporter{}
	m.reporter = rep

	m.AddReader(staticReader("r", batchOf("x")))
	m.AddPipeline(&pipeline.Func{
		PipelineName: "broken",
		ProcessFunc: func(ctx context.Context, batch []kafka.Message) error {
			return errors.PipelineFailed("broken", fmt.Errorf("sink down"))
		},
	})

	if err := m.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rep.errors) != 1 {
		t.Errorf("captured errors = %d, want exactly 1 after retries are exhausted", len(rep.errors))
	}
}

func TestAddKafkaHandlerRegistersRunner(t *testing.T) {
	m := newTestEngine(t, nil)

	err := m.AddKafkaHandler("orders", func(ctx context.Context, msg kafka.Message) error {
		return nil
	})
	if err != nil {
		t.Fatalf("AddKafkaHandler() error = %v", err)
	}

	topics := m.kafka.Topics()
	if len(topics) != 1 || topics[0] != "orders" {
		t.Errorf("kafka component topics = %v, want [orders]", topics)
	}
}

func TestEventPublisherShared(t *testing.T) {
	m := newTestEngine(t, nil)

	p1, err := m.EventPublisher()
	if err != nil {
		t.Fatalf("EventPublisher() error = %v", err)
	}
	p2, err := m.EventPublisher()
	if err != nil {
		t.Fatalf("EventPublisher() error = %v", err)
	}
	if p1 != p2 {
		t.Error("EventPublisher() returned distinct publishers, want one shared instance")
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	m := newTestEngine(t, nil)
	m.AddReader(staticReader("r", batchOf("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Execute(ctx); err == nil {
		t.Error("Execute() with canceled context = nil, want error")
	}
}

func TestRegisterDefaultJob(t *testing.T) {
	m := newTestEngine(t, map[string]any{
		settings.KeySchedulerInterval: 5,
	})

	id, err := m.RegisterDefaultJob()
	if err != nil {
		t.Fatalf("RegisterDefaultJob() error = %v", err)
	}
	if id == "" {
		t.Error("job id is empty")
	}

	jobs := m.scheduler.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("scheduled jobs = %d, want 1", len(jobs))
	}
	if jobs[0].Name != "execute" {
		t.Errorf("job name = %q, want %q", jobs[0].Name, "execute")
	}
	if m.cfg.Scheduler.Interval != 5*time.Second {
		t.Errorf("scheduler interval = %v, want 5s", m.cfg.Scheduler.Interval)
	}
}

func TestShutdownClosesReadersAndPipelines(t *testing.T) {
	m := newTestEngine(t, nil)

	readerClosed := false
	m.AddReader(&reader.Func{
		ReaderName: "r",
		CloseFunc: func() error {
			readerClosed = true
			return nil
		},
	})
	p := &recordingPipeline{name: "p"}
	m.AddPipeline(p)

	if err := m.startup(context.Background()); err != nil {
		t.Fatalf("startup() error = %v", err)
	}
	if err := m.shutdown(); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
	if !readerClosed {
		t.Error("reader was not closed")
	}
	if !p.closed {
		t.Error("pipeline was not closed")
	}
}

func TestConfigFromSettings(t *testing.T) {
	store, err := settings.New(map[string]any{
		settings.KeyServiceName:       "minotaur",
		settings.KeyEnvironment:       "production",
		settings.KeyKafkaBrokers:      "a:9092, b:9092",
		settings.KeyKafkaGroupID:      "herd",
		settings.KeySchedulerInterval: 7,
	}, settings.PriorityDefault)
	if err != nil {
		t.Fatalf("settings.New() error = %v", err)
	}

	cfg, err := ConfigFromSettings(store)
	if err != nil {
		t.Fatalf("ConfigFromSettings() error = %v", err)
	}

	if cfg.Service.Environment != "production" {
		t.Errorf("environment = %q, want %q", cfg.Service.Environment, "production")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "a:9092" || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("brokers = %v, want [a:9092 b:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.GroupID != "herd" {
		t.Errorf("group id = %q, want %q", cfg.Kafka.GroupID, "herd")
	}
	if cfg.Scheduler.Interval != 7*time.Second {
		t.Errorf("interval = %v, want 7s", cfg.Scheduler.Interval)
	}
	if cfg.Telemetry.Release == "" {
		t.Error("telemetry release is empty, want version fallback")
	}
}
