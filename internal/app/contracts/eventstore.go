package contracts

import (
	"context"

	"clinic-booking-service/internal/app/models"
)

// EventStore is the append-only log behind the slot aggregate. Events for one
// stream are totally ordered by Seq; Load returns them in that order.
type EventStore interface {
	Append(ctx context.Context, streamID string, events []models.StoredEvent) error
	Load(ctx context.Context, streamID string) ([]models.StoredEvent, error)
}
