// Package consumer wraps a kafka-go Reader with backoff, batch fetching, and
// structured logging for the daemon's readers.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/logger"
)

// MessageHandler processes a single Kafka message. A non-nil error is logged
// and the consumer continues with the next message.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// messageReader is the slice of the kafka-go Reader the consumer drives.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Stats() kafkago.ReaderStats
	Close() error
}

// Consumer wraps a kafka-go Reader with TLS/SASL, backoff, and logging.
type Consumer struct {
	reader   messageReader
	topic    string
	groupID  string
	log      *logger.Logger
	failures int
}

// New creates a consumer for a single topic.
func New(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}

	dialer, err := kafka.NewDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		RebalanceTimeout:  cfg.RebalanceTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+msg, map[string]interface{}{
				"args":     fmt.Sprintf("%v", args),
				"topic":    topic,
				"group_id": cfg.GroupID,
			})
		}),
	})

	clog.Info("Kafka consumer initialized", map[string]interface{}{
		"topic":    topic,
		"group_id": cfg.GroupID,
		"brokers":  cfg.Brokers,
	})

	return &Consumer{
		reader:  reader,
		topic:   topic,
		groupID: cfg.GroupID,
		log:     clog,
	}, nil
}

// Consume reads messages in a loop, calling handler for each one.
// It blocks until ctx is cancelled or an unrecoverable error occurs.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Starting consume loop", map[string]interface{}{
		"topic":    c.topic,
		"group_id": c.groupID,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if retryErr := c.handleFailure(ctx, err); retryErr != nil {
					return retryErr
				}
				continue
			}

			c.failures = 0

			if err := handler(ctx, kafka.FromKafkaMessage(msg)); err != nil {
				c.log.Error("Message processing failed", map[string]interface{}{
					"error":  err.Error(),
					"topic":  msg.Topic,
					"offset": msg.Offset,
				})
			}
		}
	}
}

// FetchBatch reads up to max messages, waiting at most poll for the batch to
// fill. A drained poll window returns the messages collected so far; an empty
// batch is not an error.
func (c *Consumer) FetchBatch(ctx context.Context, max int, poll time.Duration) ([]kafka.Message, error) {
	if max <= 0 {
		return nil, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, poll)
	defer cancel()

	batch := make([]kafka.Message, 0, max)
	for len(batch) < max {
		msg, err := c.reader.ReadMessage(fetchCtx)
		if err != nil {
			// The poll window closing is the normal end of a batch.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return batch, nil
			}
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			return batch, err
		}
		batch = append(batch, kafka.FromKafkaMessage(msg))
	}
	return batch, nil
}

func (c *Consumer) handleFailure(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Kafka read error", map[string]interface{}{
			"error":    err.Error(),
			"failures": c.failures,
			"topic":    c.topic,
			"group_id": c.groupID,
		})
	}

	backoff := time.Duration(c.failures) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.topic }

// GroupID returns the consumer's group ID.
func (c *Consumer) GroupID() string { return c.groupID }

// Stats returns reader statistics.
func (c *Consumer) Stats() kafkago.ReaderStats { return c.reader.Stats() }

// Close shuts down the consumer.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing", map[string]interface{}{
		"topic":    c.topic,
		"group_id": c.groupID,
	})
	return c.reader.Close()
}

// Subscription binds a handler to the consumer so the kafka component can run
// the consume loop as a push-mode source.
type Subscription struct {
	consumer *Consumer
	handler  MessageHandler
}

var _ kafka.Runner = (*Subscription)(nil)

// Subscribe binds handler to the consumer's messages.
func (c *Consumer) Subscribe(handler MessageHandler) *Subscription {
	return &Subscription{consumer: c, handler: handler}
}

// Consume runs the consumer's loop with the bound handler.
func (s *Subscription) Consume(ctx context.Context) error {
	return s.consumer.Consume(ctx, s.handler)
}

// Topic returns the underlying consumer's topic.
func (s *Subscription) Topic() string { return s.consumer.Topic() }

// Close shuts down the underlying consumer.
func (s *Subscription) Close() error { return s.consumer.Close() }
