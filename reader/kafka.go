package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/kafka/consumer"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/settings"
)

// KafkaConfig holds the per-reader Kafka source configuration.
type KafkaConfig struct {
	// Topic is the topic this reader consumes.
	Topic string `yaml:"topic" mapstructure:"topic"`

	// BatchSize caps how many messages a single Read returns.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// PollTimeout bounds how long a Read waits for the batch to fill.
	PollTimeout time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`
}

// ApplyDefaults applies default values to reader configuration.
func (c *KafkaConfig) ApplyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
}

// FromSettings overlays batch size and poll timeout from the layered store.
func (c *KafkaConfig) FromSettings(store *settings.Store) {
	if v := store.GetInt(settings.KeyReaderBatchSize); v > 0 {
		c.BatchSize = v
	}
	if v := store.GetDuration(settings.KeyReaderPollTimeout); v > 0 {
		c.PollTimeout = v
	}
}

// Validate validates reader configuration.
func (c *KafkaConfig) Validate() error {
	if c.Topic == "" {
		return errors.InvalidConfig("reader", fmt.Errorf("topic is required"))
	}
	return nil
}

// KafkaReader pulls batches from a Kafka topic via a consumer group.
type KafkaReader struct {
	consumer *consumer.Consumer
	cfg      KafkaConfig
	name     string
}

var _ Reader = (*KafkaReader)(nil)

// NewKafka creates a Kafka-backed reader for a single topic.
func NewKafka(kafkaCfg kafka.Config, cfg KafkaConfig, log *logger.Logger) (*KafkaReader, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := consumer.New(kafkaCfg, cfg.Topic, log)
	if err != nil {
		return nil, err
	}

	return &KafkaReader{
		consumer: c,
		cfg:      cfg,
		name:     "kafka:" + cfg.Topic,
	}, nil
}

func (r *KafkaReader) Name() string { return r.name }

// Read fetches up to BatchSize messages, waiting at most PollTimeout.
func (r *KafkaReader) Read(ctx context.Context) ([]kafka.Message, error) {
	batch, err := r.consumer.FetchBatch(ctx, r.cfg.BatchSize, r.cfg.PollTimeout)
	if err != nil {
		return batch, errors.ReaderFailed(r.name, err)
	}
	return batch, nil
}

func (r *KafkaReader) Close() error {
	return r.consumer.Close()
}
