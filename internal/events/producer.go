package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// Topics published on order status transitions.
const (
	TopicOrderPaid      = "order.paid"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderRefunded  = "order.refunded"
	TopicOrderExpired   = "order.expired"
)

// Producer publishes order lifecycle events to Kafka. A nil Producer is
// valid and publishes nothing, so event publishing can be disabled by
// configuration.
type Producer struct {
	sync sarama.SyncProducer
}

func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	sp, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	return &Producer{sync: sp}, nil
}

// Publish sends an event envelope to the given topic. Failures are
// logged, never returned: order processing must not depend on the
// event bus being up.
func (p *Producer) Publish(topic string, data any) {
	if p == nil {
		return
	}

	envelope := map[string]any{
		"event_type": topic,
		"data":       data,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		slog.Error("failed to marshal event", "topic", topic, "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(body),
	}

	if _, _, err := p.sync.SendMessage(msg); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}

func (p *Producer) Close() {
	if p == nil {
		return
	}
	if err := p.sync.Close(); err != nil {
		slog.Error("failed to close kafka producer", "error", err)
	}
}
