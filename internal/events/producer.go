package events

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// SyncProducer captures the subset of producer behaviour the publisher needs.
type SyncProducer interface {
	PublishSync(topic string, key []byte, payload []byte) error
	Close() error
}

// KafkaProducer wraps a Sarama sync producer.
type KafkaProducer struct {
	logger   zerolog.Logger
	producer sarama.SyncProducer
}

// NewKafkaProducer connects a sync producer to the supplied brokers.
func NewKafkaProducer(brokers []string, logger zerolog.Logger) (*KafkaProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create producer: %w", err)
	}
	return &KafkaProducer{logger: logger, producer: producer}, nil
}

// PublishSync publishes one message and waits for broker acknowledgement.
func (p *KafkaProducer) PublishSync(topic string, key []byte, payload []byte) error {
	if topic == "" {
		return errors.New("events: topic is required")
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("events: send sync: %w", err)
	}
	return nil
}

// Close shuts the underlying producer down.
func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
