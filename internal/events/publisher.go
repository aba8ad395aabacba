// Package events emits per-outcome status events to Kafka. The stream is an
// optional side channel: publish failures are logged and never affect the
// run result.
package events

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/models"
)

// OutcomeEvent is the wire form of one dispatch outcome.
type OutcomeEvent struct {
	RunID     string    `json:"run_id"`
	Phone     string    `json:"phone"`
	EventType string    `json:"event_type"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher implements the scheduler's OutcomeObserver against a Kafka topic.
type Publisher struct {
	producer SyncProducer
	topic    string
	runID    string
	logger   zerolog.Logger
}

// NewPublisher constructs a Publisher. A nil producer yields a nil Publisher,
// which callers treat as "events disabled".
func NewPublisher(producer SyncProducer, topic string, logger zerolog.Logger) *Publisher {
	if producer == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		runID:    uuid.NewString(),
		logger:   logger,
	}
}

// RunID identifies the run every event from this publisher belongs to.
func (p *Publisher) RunID() string { return p.runID }

// Observe publishes one outcome as a status event.
func (p *Publisher) Observe(_ context.Context, outcome models.DispatchOutcome) {
	event := OutcomeEvent{
		RunID:     p.runID,
		Phone:     outcome.Phone,
		EventType: outcome.Status,
		MessageID: outcome.MessageID,
		Error:     outcome.Error,
		Timestamp: outcome.Timestamp,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("events: marshal outcome event")
		return
	}
	if err := p.producer.PublishSync(p.topic, []byte(outcome.Phone), payload); err != nil {
		p.logger.Error().
			Str("phone", outcome.Phone).
			Err(err).
			Msg("events: publish outcome event")
	}
}
