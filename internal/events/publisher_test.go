package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/models"
)

type fakeProducer struct {
	topics   []string
	keys     [][]byte
	payloads [][]byte
	err      error
}

func (f *fakeProducer) PublishSync(topic string, key []byte, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestObservePublishesEvent(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewPublisher(prod, "campaign.dispatch.status", zerolog.Nop())
	if pub == nil {
		t.Fatalf("expected publisher")
	}

	pub.Observe(context.Background(), models.DispatchOutcome{
		Phone:     "573001234567",
		Status:    models.OutcomeSent,
		MessageID: "wamid.1",
		Timestamp: time.Now(),
	})

	if len(prod.payloads) != 1 {
		t.Fatalf("expected one event, got %d", len(prod.payloads))
	}
	if prod.topics[0] != "campaign.dispatch.status" {
		t.Fatalf("unexpected topic: %s", prod.topics[0])
	}
	if string(prod.keys[0]) != "573001234567" {
		t.Fatalf("expected phone as key, got %q", prod.keys[0])
	}

	var event OutcomeEvent
	if err := json.Unmarshal(prod.payloads[0], &event); err != nil {
		t.Fatalf("event is not valid json: %v", err)
	}
	if event.EventType != models.OutcomeSent || event.MessageID != "wamid.1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.RunID != pub.RunID() {
		t.Fatalf("expected run id %q, got %q", pub.RunID(), event.RunID)
	}
}

func TestObserveSwallowsProducerErrors(t *testing.T) {
	prod := &fakeProducer{err: errors.New("broker unavailable")}
	pub := NewPublisher(prod, "campaign.dispatch.status", zerolog.Nop())

	// Must not panic or propagate.
	pub.Observe(context.Background(), models.DispatchOutcome{
		Phone:  "573001234567",
		Status: models.OutcomeFailed,
		Error:  "unreachable",
	})
}

func TestNewPublisherNilProducer(t *testing.T) {
	if pub := NewPublisher(nil, "topic", zerolog.Nop()); pub != nil {
		t.Fatalf("expected nil publisher for nil producer")
	}
}
