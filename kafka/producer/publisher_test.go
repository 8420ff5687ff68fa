package producer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/minotaur-io/minotaur/kafka"
	"github.com/minotaur-io/minotaur/logger"
)

func newTestPublisher(fw *fakeWriter) *EventPublisher {
	return NewPublisher(newTestProducer(fw), "minotaur", logger.NewDefault("test"))
}

func TestPublishFillsEnvelope(t *testing.T) {
	fw := &fakeWriter{}
	pub := newTestPublisher(fw)

	err := pub.Publish(context.Background(), "events", kafka.Event{
		Type: "herd.moved",
		Data: map[string]any{"pen": "north"},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("delivered messages = %d, want 1", len(fw.msgs))
	}
	msg := fw.msgs[0]

	var ev kafka.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("event payload is not JSON: %v", err)
	}
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("event id %q is not a uuid: %v", ev.ID, err)
	}
	if ev.Timestamp.IsZero() {
		t.Error("event timestamp was not filled")
	}
	if ev.Source != "minotaur" {
		t.Errorf("event source = %q, want %q", ev.Source, "minotaur")
	}
	if ev.ContentType != "application/json" {
		t.Errorf("content type = %q, want application/json", ev.ContentType)
	}

	// Without a subject the event id becomes the partition key.
	if string(msg.Key) != ev.ID {
		t.Errorf("key = %q, want the event id %q", msg.Key, ev.ID)
	}
	if got := header(msg, "event-id"); got != ev.ID {
		t.Errorf("event-id header = %q, want %q", got, ev.ID)
	}
	if got := header(msg, "event-type"); got != "herd.moved" {
		t.Errorf("event-type header = %q, want %q", got, "herd.moved")
	}
	if got := header(msg, "event-source"); got != "minotaur" {
		t.Errorf("event-source header = %q, want %q", got, "minotaur")
	}
}

func TestPublishSubjectKey(t *testing.T) {
	fw := &fakeWriter{}
	pub := newTestPublisher(fw)

	err := pub.Publish(context.Background(), "events", kafka.Event{
		Type:    "herd.moved",
		Subject: "pen-7",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := string(fw.msgs[0].Key); got != "pen-7" {
		t.Errorf("key = %q, want the subject", got)
	}
}

func TestPublishKeepsCallerFields(t *testing.T) {
	fw := &fakeWriter{}
	pub := newTestPublisher(fw)

	id := uuid.NewString()
	err := pub.Publish(context.Background(), "events", kafka.Event{
		ID:     id,
		Type:   "herd.moved",
		Source: "labyrinth",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var ev kafka.Event
	if err := json.Unmarshal(fw.msgs[0].Value, &ev); err != nil {
		t.Fatalf("event payload is not JSON: %v", err)
	}
	if ev.ID != id {
		t.Errorf("event id = %q, want the caller's %q", ev.ID, id)
	}
	if ev.Source != "labyrinth" {
		t.Errorf("event source = %q, want the caller's %q", ev.Source, "labyrinth")
	}
}

func TestPublishData(t *testing.T) {
	fw := &fakeWriter{}
	pub := newTestPublisher(fw)

	err := pub.PublishData(context.Background(), "events", "pen-7", map[string]any{"count": 3})
	if err != nil {
		t.Fatalf("PublishData() error = %v", err)
	}

	msg := fw.msgs[0]
	if string(msg.Key) != "pen-7" {
		t.Errorf("key = %q, want the subject", msg.Key)
	}
	var ev kafka.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("event payload is not JSON: %v", err)
	}
	if ev.Type != "minotaur.message" {
		t.Errorf("event type = %q, want %q", ev.Type, "minotaur.message")
	}
	if ev.Data["count"] != float64(3) {
		t.Errorf("event data = %v", ev.Data)
	}
}

func TestPublisherClose(t *testing.T) {
	fw := &fakeWriter{}
	pub := newTestPublisher(fw)

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fw.closed {
		t.Error("underlying writer was not closed")
	}
}
