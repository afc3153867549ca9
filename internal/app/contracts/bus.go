package contracts

import (
	"context"

	"clinic-booking-service/internal/app/models"
)

// MessageHandler processes one delivered envelope. A returned error causes the
// delivery to be retried (at-least-once transport), so handlers must be
// idempotent.
type MessageHandler func(ctx context.Context, envelope models.Envelope) error

// CommandBus sends fire-and-forget commands to exactly one consumer.
type CommandBus interface {
	Send(ctx context.Context, name, correlationID string, payload interface{}) error
}

// EventPublisher publishes facts for every interested subscriber.
type EventPublisher interface {
	Publish(ctx context.Context, name, correlationID string, payload interface{}) error
}

// MessageConsumer binds a queue to a set of routing keys and pumps deliveries
// into the handler until the context is cancelled.
type MessageConsumer interface {
	Consume(ctx context.Context, queue string, routingKeys []string, handler MessageHandler) error
}
