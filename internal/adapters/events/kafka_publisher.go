package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher ships ledger and task lifecycle events to Kafka. Topic
// routing comes from configuration; an event type with no mapping publishes
// to a topic named after the event type itself.
type KafkaPublisher struct {
	writer *kafka.Writer
	topics map[string]string
}

func NewKafkaPublisher(brokers []string, topics map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers configured")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topics: topics,
	}, nil
}

func (p *KafkaPublisher) resolveTopic(eventType string) string {
	if topic, ok := p.topics[eventType]; ok && topic != "" {
		return topic
	}
	return eventType
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.resolveTopic(eventType),
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
