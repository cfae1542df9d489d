package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type rabbitTransport struct {
	ch *amqp.Channel
}

// NewRabbitPublisher opens a channel on conn and declares the events exchange.
func NewRabbitPublisher(conn *amqp.Connection, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(&rabbitTransport{ch: ch}, opts), nil
}

func (t *rabbitTransport) send(ctx context.Context, routingKey, _ string, body []byte) error {
	return t.ch.PublishWithContext(
		ctx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (t *rabbitTransport) close() error {
	return t.ch.Close()
}
