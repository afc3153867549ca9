package booking

import (
	"context"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// StatusProjection mirrors booking lifecycle events into the status read
// model behind the polling endpoint. Upserts keyed by booking id make a
// redelivered event converge on the same row.
type StatusProjection struct {
	repository contracts.BookingStatusRepository
	log        *zap.Logger
}

func NewStatusProjection(repository contracts.BookingStatusRepository, logger *zap.Logger) *StatusProjection {
	return &StatusProjection{repository: repository, log: logger}
}

func (p *StatusProjection) Start(ctx context.Context, consumer contracts.MessageConsumer) error {
	routingKeys := []string{
		constvars.EventSlotLocked,
		constvars.EventBookingCompleted,
		constvars.EventBookingRejected,
	}
	return consumer.Consume(ctx, constvars.QueueProjectionEvents, routingKeys, p.handle)
}

func (p *StatusProjection) handle(ctx context.Context, envelope models.Envelope) error {
	switch envelope.Name {
	case constvars.EventSlotLocked:
		var event models.SlotLocked
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		// A completed or rejected booking must never flip back to pending on
		// a redelivered lock event.
		existing, err := p.repository.FindByBookingID(ctx, event.BookingID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != constvars.BookingStatusPending {
			return nil
		}
		return p.repository.Upsert(ctx, &models.BookingStatusView{
			BookingID: event.BookingID,
			Status:    constvars.BookingStatusPending,
		})

	case constvars.EventBookingCompleted:
		var event models.BookingCompletedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return p.repository.Upsert(ctx, &models.BookingStatusView{
			BookingID:     event.BookingID,
			Status:        constvars.BookingStatusApproved,
			PatientID:     event.PatientID,
			AppointmentID: event.AppointmentID,
		})

	case constvars.EventBookingRejected:
		var event models.BookingRejectedEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return p.repository.Upsert(ctx, &models.BookingStatusView{
			BookingID: event.BookingID,
			Status:    constvars.BookingStatusRejected,
			Reason:    event.Reason,
		})
	}

	p.log.Warn("statusProjection.handle unknown event, dropping",
		zap.String(constvars.LoggingEventKey, envelope.Name),
	)
	return nil
}
