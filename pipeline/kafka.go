package pipeline

import (
	"context"
	"fmt"

	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/kafka/producer"
	"github.com/minotaur-io/minotaur/logger"
	kafkago "github.com/segmentio/kafka-go"
)

// Transform maps an incoming message to the message to publish. Returning
// false drops the message without error.
type Transform func(msg kafka.Message) (kafka.Message, bool, error)

// KafkaConfig holds the per-pipeline Kafka sink configuration.
type KafkaConfig struct {
	// Topic is the topic this pipeline publishes to.
	Topic string `yaml:"topic" mapstructure:"topic"`
}

// Validate validates pipeline configuration.
func (c *KafkaConfig) Validate() error {
	if c.Topic == "" {
		return errors.InvalidConfig("pipeline", fmt.Errorf("topic is required"))
	}
	return nil
}

// KafkaPipeline republishes each message in a batch to an output topic,
// optionally transforming it first.
type KafkaPipeline struct {
	producer  *producer.Producer
	cfg       KafkaConfig
	transform Transform
	name      string
}

var _ Pipeline = (*KafkaPipeline)(nil)

// NewKafka creates a Kafka-backed pipeline publishing to a single topic.
// A nil transform republishes messages unchanged.
func NewKafka(kafkaCfg kafka.Config, cfg KafkaConfig, transform Transform, log *logger.Logger) (*KafkaPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := producer.NewLazy(kafkaCfg, log)
	if err != nil {
		return nil, err
	}

	return &KafkaPipeline{
		producer:  p,
		cfg:       cfg,
		transform: transform,
		name:      "kafka:" + cfg.Topic,
	}, nil
}

func (p *KafkaPipeline) Name() string { return p.name }

// Process transforms and publishes the batch in a single write.
func (p *KafkaPipeline) Process(ctx context.Context, batch []kafka.Message) error {
	if len(batch) == 0 {
		return nil
	}

	out := make([]kafka.Message, 0, len(batch))
	for _, msg := range batch {
		if p.transform != nil {
			transformed, keep, err := p.transform(msg)
			if err != nil {
				return errors.PipelineFailed(p.name, err)
			}
			if !keep {
				continue
			}
			msg = transformed
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		return nil
	}

	// Partition and offset belong to the source topic, so outgoing
	// messages are rebuilt rather than converted wholesale.
	raw := make([]kafkago.Message, 0, len(out))
	for _, msg := range out {
		headers := make([]kafkago.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
		raw = append(raw, kafkago.Message{
			Topic:   p.cfg.Topic,
			Key:     []byte(msg.Key),
			Value:   msg.Value,
			Headers: headers,
		})
	}
	if err := p.producer.WriteMessages(ctx, raw...); err != nil {
		return errors.PipelineFailed(p.name, err)
	}
	return nil
}

func (p *KafkaPipeline) Close() error {
	return p.producer.Close()
}
