package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange            = "ecommerce.events"
	StockAdjustedRoutingKey   = "stock.adjusted.v1"
	CartItemChangedRoutingKey = "cart.item-changed.v1"
	catalogServiceName        = "catalog-service-go"
)

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return conn, nil
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
