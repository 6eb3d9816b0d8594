// Package ledgerevent publishes committed ledger mutations.
package ledgerevent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// messageWriter is the part of *kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes ledger events to a Kafka topic.
//
// Messages are keyed by account id, so events of one account land in one
// partition in the order they were committed.
type Kafka struct {
	writer messageWriter
}

// NewKafka returns Kafka publisher writing to topic on brokers.
//
// Writes are asynchronous. Delivery failures are reported to logger.
func NewKafka(brokers []string, topic string, logger zerolog.Logger) *Kafka {
	l := logger.With().Str("component", "kafka").Str("topic", topic).Logger()

	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					l.Error().Err(err).Int("messages", len(messages)).Msg("ledger events not delivered")
					return
				}

				l.Debug().Int("messages", len(messages)).Msg("ledger events delivered")
			},
		},
	}
}

// Message encodes e as a Kafka message.
func Message(e domain.LedgerEvent) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode ledger event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(e.AccountID.String()),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	}, nil
}

// Publish queues e for delivery.
func (k *Kafka) Publish(ctx context.Context, e domain.LedgerEvent) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}

	return k.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, domain.LedgerEvent) error {
	return nil
}
