package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// kafkaWriter is the subset of *kafka.Writer we use.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaTransport struct {
	w kafkaWriter
}

// NewKafkaPublisher writes every event to topic, keyed by partition key so
// events for one product or session stay ordered.
func NewKafkaPublisher(brokers []string, topic string, opts PublisherOptions) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(&kafkaTransport{w: w}, opts)
}

func (t *kafkaTransport) send(ctx context.Context, routingKey, key string, body []byte) error {
	return t.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "routing-key", Value: []byte(routingKey)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}

func (t *kafkaTransport) close() error {
	return t.w.Close()
}
