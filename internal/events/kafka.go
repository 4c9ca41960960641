package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope is the Kafka message value.
type Envelope struct {
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes booking events to a Kafka topic.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	})
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) BookingConfirmed(ctx context.Context, e BookingConfirmed) error {
	return p.publish(ctx, e.ReservationID, TypeBookingConfirmed, e)
}

func (p *KafkaPublisher) BookingRejected(ctx context.Context, e BookingRejected) error {
	return p.publish(ctx, e.Category, TypeBookingRejected, e)
}

func (p *KafkaPublisher) RepriceFlagged(ctx context.Context, e RepriceFlagged) error {
	return p.publish(ctx, e.ReservationID, TypeRepriceFlagged, e)
}

func (p *KafkaPublisher) Repriced(ctx context.Context, e Repriced) error {
	return p.publish(ctx, e.ReservationID, TypeRepriced, e)
}

// publish keys messages so events of one reservation stay on one partition.
func (p *KafkaPublisher) publish(ctx context.Context, key string, t Type, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	value, err := json.Marshal(Envelope{Type: t, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", t, err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(t)},
		},
	}); err != nil {
		return fmt.Errorf("publishing %s: %w", t, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
