package bus

import (
	"context"
	"sync"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"

	"github.com/google/uuid"
)

// MemoryBus is an in-process bus for tests. Envelopes are queued and drained
// run-to-completion at the outermost Send/Publish call, so a handler that
// publishes more messages never re-enters another handler while it still
// holds its own locks. Delivery order is deterministic.
type MemoryBus struct {
	mu        sync.Mutex
	handlers  map[string][]contracts.MessageHandler
	published []models.Envelope
	queue     []models.Envelope
	draining  bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]contracts.MessageHandler)}
}

func (b *MemoryBus) Send(ctx context.Context, name, correlationID string, payload interface{}) error {
	return b.dispatch(ctx, name, correlationID, payload)
}

func (b *MemoryBus) Publish(ctx context.Context, name, correlationID string, payload interface{}) error {
	return b.dispatch(ctx, name, correlationID, payload)
}

func (b *MemoryBus) Consume(_ context.Context, _ string, routingKeys []string, handler contracts.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range routingKeys {
		b.handlers[key] = append(b.handlers[key], handler)
	}
	return nil
}

// Published returns every envelope seen so far, in order.
func (b *MemoryBus) Published() []models.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Envelope, len(b.published))
	copy(out, b.published)
	return out
}

// PublishedNamed filters Published by message name.
func (b *MemoryBus) PublishedNamed(name string) []models.Envelope {
	var out []models.Envelope
	for _, envelope := range b.Published() {
		if envelope.Name == name {
			out = append(out, envelope)
		}
	}
	return out
}

func (b *MemoryBus) dispatch(ctx context.Context, name, correlationID string, payload interface{}) error {
	envelope, err := models.NewEnvelope(uuid.NewString(), name, correlationID, payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.published = append(b.published, envelope)
	b.queue = append(b.queue, envelope)
	if b.draining {
		b.mu.Unlock()
		return nil
	}
	b.draining = true
	b.mu.Unlock()

	return b.drain(ctx)
}

func (b *MemoryBus) drain(ctx context.Context) error {
	var firstErr error
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.mu.Unlock()
			return firstErr
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		handlers := append([]contracts.MessageHandler(nil), b.handlers[next.Name]...)
		b.mu.Unlock()

		for _, handler := range handlers {
			if err := handler(ctx, next); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
}
