// Package kafka publishes engine events to a Kafka topic. It implements
// inventory.Notifier on a sarama synchronous producer, so a publish
// failure is visible to the caller (who treats notification as
// best-effort and logs it).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/warp/booking-engine/inventory"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "booking.cancellations"

// Notifier publishes CancellationEvents to Kafka.
type Notifier struct {
	sync  sarama.SyncProducer
	topic string
}

// NewNotifier connects a synchronous, idempotent producer to the given
// brokers. Pass nil cfg for sensible defaults.
func NewNotifier(brokers []string, topic string, cfg *sarama.Config) (*Notifier, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	if cfg.Producer.Idempotent {
		cfg.Net.MaxOpenRequests = 1
	}

	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &Notifier{sync: sync, topic: topic}, nil
}

// NotifyCancellation publishes the event keyed by booking ID, so all
// events for one booking land on the same partition in order.
func (n *Notifier) NotifyCancellation(ctx context.Context, ev inventory.CancellationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode cancellation event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(ev.BookingID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := n.sync.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish cancellation event: %w", err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (n *Notifier) Close() error {
	if n.sync == nil {
		return nil
	}
	return n.sync.Close()
}
