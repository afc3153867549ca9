package appointments

import (
	"context"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// CommandConsumer executes appointment commands for the booking flow. A
// failed attempt becomes AppointmentCreationFailed; retry policy lives in the
// saga.
type CommandConsumer struct {
	repository contracts.AppointmentRepository
	events     contracts.EventPublisher
	log        *zap.Logger
}

func NewCommandConsumer(
	repository contracts.AppointmentRepository,
	events contracts.EventPublisher,
	logger *zap.Logger,
) *CommandConsumer {
	return &CommandConsumer{repository: repository, events: events, log: logger}
}

func (c *CommandConsumer) Start(ctx context.Context, consumer contracts.MessageConsumer) error {
	routingKeys := []string{constvars.CmdCreateAppointment}
	return consumer.Consume(ctx, constvars.QueueAppointmentCommands, routingKeys, c.handle)
}

func (c *CommandConsumer) handle(ctx context.Context, envelope models.Envelope) error {
	if envelope.Name != constvars.CmdCreateAppointment {
		c.log.Warn("appointmentCommandConsumer.handle unknown command, dropping",
			zap.String(constvars.LoggingCommandKey, envelope.Name),
		)
		return nil
	}

	var cmd models.CreateAppointmentCommand
	if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
		return exceptions.ErrCannotParseJSON(err)
	}

	c.log.Info("appointmentCommandConsumer.handle creating appointment",
		zap.String(constvars.LoggingAppointmentIDKey, cmd.AppointmentID),
		zap.String(constvars.LoggingPatientIDKey, cmd.PatientID),
		zap.String(constvars.LoggingSlotIDKey, cmd.SlotID),
	)

	err := c.repository.Upsert(ctx, &models.Appointment{
		AppointmentID: cmd.AppointmentID,
		PatientID:     cmd.PatientID,
		SlotID:        cmd.SlotID,
	})
	if err != nil {
		c.log.Error("appointmentCommandConsumer.handle cannot persist appointment",
			zap.String(constvars.LoggingAppointmentIDKey, cmd.AppointmentID),
			zap.Error(err),
		)
		return c.events.Publish(ctx, constvars.EventAppointmentCreationFailed, envelope.CorrelationID,
			models.AppointmentCreationFailedEvent{AppointmentID: cmd.AppointmentID, Reason: err.Error()})
	}

	return c.events.Publish(ctx, constvars.EventAppointmentCreated, envelope.CorrelationID,
		models.AppointmentCreatedEvent{AppointmentID: cmd.AppointmentID})
}
