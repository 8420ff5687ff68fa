package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/logger"
)

// Publisher provides a high-level API for publishing structured events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event kafka.Event) error
	PublishData(ctx context.Context, topic, subject string, data map[string]any) error
	Close() error
}

// EventPublisher implements Publisher by wrapping a Producer.
type EventPublisher struct {
	producer *Producer
	source   string
	log      *logger.Logger
}

var _ Publisher = (*EventPublisher)(nil)

// NewPublisher creates a Publisher that wraps the given Producer.
// The source tags every published event's Source field.
func NewPublisher(producer *Producer, source string, log *logger.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		source:   source,
		log:      log.WithComponent("kafka.publisher"),
	}
}

// Publish sends a structured Event to Kafka. The event Subject (falling back
// to its ID) is used as the partition key. A missing ID or timestamp is
// filled in.
func (p *EventPublisher) Publish(ctx context.Context, topic string, event kafka.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Source == "" {
		event.Source = p.source
	}
	if event.ContentType == "" {
		event.ContentType = "application/json"
	}

	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := event.Subject
	if key == "" {
		key = event.ID
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-source", Value: []byte(event.Source)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: event.Timestamp,
	}

	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// PublishData wraps data in an Event envelope and publishes it.
func (p *EventPublisher) PublishData(ctx context.Context, topic, subject string, data map[string]any) error {
	return p.Publish(ctx, topic, kafka.Event{
		Type:    "minotaur.message",
		Subject: subject,
		Data:    data,
	})
}

// Close shuts down the underlying producer.
func (p *EventPublisher) Close() error {
	return p.producer.Close()
}
