package bus

import (
	"context"
	"fmt"
	"sync"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// rabbitMQBus publishes and consumes envelopes over a single durable topic
// exchange. Publishing uses confirms so a command is only considered sent once
// the broker owns it.
type rabbitMQBus struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	log      *zap.Logger
	prefetch int
	confirms chan amqp.Confirmation
	mu       sync.Mutex
}

func NewRabbitMQBus(conn *amqp.Connection, log *zap.Logger, prefetch int) (*rabbitMQBus, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		constvars.MessagingExchange, // name
		"topic",                     // kind
		true,                        // durable
		false,                       // autoDelete
		false,                       // internal
		false,                       // noWait
		nil,                         // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &rabbitMQBus{
		conn:     conn,
		ch:       ch,
		log:      log,
		prefetch: prefetch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

func (b *rabbitMQBus) Send(ctx context.Context, name, correlationID string, payload interface{}) error {
	return b.publish(ctx, name, correlationID, payload)
}

func (b *rabbitMQBus) Publish(ctx context.Context, name, correlationID string, payload interface{}) error {
	return b.publish(ctx, name, correlationID, payload)
}

func (b *rabbitMQBus) publish(ctx context.Context, name, correlationID string, payload interface{}) error {
	envelope, err := models.NewEnvelope(uuid.NewString(), name, correlationID, payload)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	// Publishing and waiting for the matching confirm must not interleave
	// across goroutines on one channel.
	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.ch.PublishWithContext(ctx,
		constvars.MessagingExchange,
		name,  // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   constvars.MIMEApplicationJSON,
			DeliveryMode:  amqp.Persistent,
			MessageId:     envelope.MessageID,
			CorrelationId: correlationID,
			Body:          body,
		})
	if err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err, name)
	}

	select {
	case confirmation := <-b.confirms:
		if !confirmation.Ack {
			return exceptions.ErrRabbitMQPublishNotConfirmed(nil, name)
		}
	case <-ctx.Done():
		return exceptions.ErrRabbitMQPublishNotConfirmed(ctx.Err(), name)
	}

	b.log.Debug("bus.publish confirmed",
		zap.String(constvars.LoggingCommandKey, name),
		zap.String(constvars.LoggingCorrelationIDKey, correlationID),
	)
	return nil
}

// Consume opens its own channel, binds the queue to the routing keys and pumps
// deliveries into the handler until ctx is cancelled. Handler errors nack the
// delivery back onto the queue once; a redelivered failure is dropped so a
// poison message cannot wedge the queue.
func (b *rabbitMQBus) Consume(ctx context.Context, queue string, routingKeys []string, handler contracts.MessageHandler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(queue, key, constvars.MessagingExchange, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("bind %s to %s: %w", queue, key, err)
		}
	}

	if err := ch.Qos(b.prefetch, 0, false); err != nil {
		_ = ch.Close()
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return err
	}

	go func() {
		defer ch.Close()
		for delivery := range deliveries {
			b.handleDelivery(ctx, queue, delivery, handler)
		}
	}()

	return nil
}

func (b *rabbitMQBus) handleDelivery(ctx context.Context, queue string, delivery amqp.Delivery, handler contracts.MessageHandler) {
	var envelope models.Envelope
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		b.log.Error("bus.consume cannot decode envelope, dropping",
			zap.String("queue", queue),
			zap.Error(err),
		)
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, envelope); err != nil {
		b.log.Error("bus.consume handler failed",
			zap.String("queue", queue),
			zap.String(constvars.LoggingEventKey, envelope.Name),
			zap.String(constvars.LoggingCorrelationIDKey, envelope.CorrelationID),
			zap.Bool("redelivered", delivery.Redelivered),
			zap.Error(err),
		)
		_ = delivery.Nack(false, !delivery.Redelivered)
		return
	}

	_ = delivery.Ack(false)
}
