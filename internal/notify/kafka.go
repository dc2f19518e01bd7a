package notify

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"sneakerbot/deal-sniper/internal/model"
)

// Kafka produces each deal to a topic, keyed by listing URL.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka connects a synchronous producer to brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaWithProducer(p, topic), nil
}

// NewKafkaWithProducer wraps an existing producer.
func NewKafkaWithProducer(p sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: p, topic: topic}
}

func (n *Kafka) Notify(_ context.Context, d model.Deal) error {
	payload, err := encodeEvent(d)
	if err != nil {
		return fmt.Errorf("encode deal: %w", err)
	}
	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(d.Listing.URL),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("produce to %s: %w", n.topic, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (n *Kafka) Close() error {
	return n.producer.Close()
}
