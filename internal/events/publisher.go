package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
)

// transport delivers an encoded envelope. key is the partition key, used by
// Kafka for partitioning and ignored by AMQP.
type transport interface {
	send(ctx context.Context, routingKey, key string, body []byte) error
	close() error
}

type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// Publisher wraps cart notifications in EventEnvelopes and hands them to a
// broker transport. It implements cart.Publisher.
type Publisher struct {
	transport transport
	seq       Sequencer
	producer  string
	now       func() time.Time
}

type PublisherOptions struct {
	Producer  string
	Sequencer Sequencer
}

func newPublisher(t transport, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = catalogServiceName
	}
	return &Publisher{
		transport: t,
		seq:       opts.Sequencer,
		producer:  producer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.transport.close()
}

func (p *Publisher) PublishStockAdjusted(ctx context.Context, adj cart.StockAdjustment) error {
	occurredAt := p.now()
	payload := StockAdjustedPayload{
		ProductID:      adj.ProductID,
		Delta:          adj.Delta,
		StockQuantity:  adj.StockQuantity,
		StockStatus:    string(adj.StockStatus),
		PreviousStatus: string(adj.PreviousStatus),
		Reason:         adj.Reason,
		Timestamp:      occurredAt,
	}
	env, err := p.envelope(ctx, EventTypeStockAdjusted, stockAdjustedSchema, productPartition(adj.ProductID), payload, occurredAt)
	if err != nil {
		return err
	}
	return p.publish(ctx, StockAdjustedRoutingKey, env)
}

func (p *Publisher) PublishItemChanged(ctx context.Context, change cart.ItemChange) error {
	occurredAt := p.now()
	payload := CartItemChangedPayload{
		SessionID: change.SessionID,
		ProductID: change.ProductID,
		Quantity:  change.Quantity,
		Action:    change.Action,
		Timestamp: occurredAt,
	}
	env, err := p.envelope(ctx, EventTypeCartItemChanged, cartItemChangedSchema, sessionPartition(change.SessionID), payload, occurredAt)
	if err != nil {
		return err
	}
	return p.publish(ctx, CartItemChangedRoutingKey, env)
}

func (p *Publisher) envelope(ctx context.Context, name, schema, partitionKey string, payload any, occurredAt time.Time) (EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}

	var seq int64
	if p.seq != nil {
		if seq, err = p.seq.NextSequence(ctx, partitionKey); err != nil {
			return EventEnvelope{}, fmt.Errorf("reserve sequence: %w", err)
		}
	}

	return EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: CorrelationIDFrom(ctx),
		Producer:      p.producer,
		PartitionKey:  partitionKey,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        schema,
		Payload:       raw,
	}, nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, env EventEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.EventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := p.transport.send(pubCtx, routingKey, env.PartitionKey, body); err != nil {
		return fmt.Errorf("publish %s: %w", env.EventName, err)
	}
	return nil
}

type correlationKey struct{}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}
