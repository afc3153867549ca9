package patients

import (
	"context"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// CommandConsumer executes patient commands for the booking flow. Outcomes go
// back as events; a failed attempt becomes PatientCreationFailed rather than a
// transport-level redelivery, because retrying with backoff belongs to the
// saga.
type CommandConsumer struct {
	repository contracts.PatientRepository
	events     contracts.EventPublisher
	log        *zap.Logger
}

func NewCommandConsumer(
	repository contracts.PatientRepository,
	events contracts.EventPublisher,
	logger *zap.Logger,
) *CommandConsumer {
	return &CommandConsumer{repository: repository, events: events, log: logger}
}

func (c *CommandConsumer) Start(ctx context.Context, consumer contracts.MessageConsumer) error {
	routingKeys := []string{constvars.CmdCreatePatient, constvars.CmdDeletePatient}
	return consumer.Consume(ctx, constvars.QueuePatientCommands, routingKeys, c.handle)
}

func (c *CommandConsumer) handle(ctx context.Context, envelope models.Envelope) error {
	switch envelope.Name {
	case constvars.CmdCreatePatient:
		var cmd models.CreatePatientCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return c.createPatient(ctx, envelope.CorrelationID, &cmd)

	case constvars.CmdDeletePatient:
		var cmd models.DeletePatientCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return exceptions.ErrCannotParseJSON(err)
		}
		return c.deletePatient(ctx, &cmd)
	}

	c.log.Warn("patientCommandConsumer.handle unknown command, dropping",
		zap.String(constvars.LoggingCommandKey, envelope.Name),
	)
	return nil
}

func (c *CommandConsumer) createPatient(ctx context.Context, correlationID string, cmd *models.CreatePatientCommand) error {
	c.log.Info("patientCommandConsumer.createPatient called",
		zap.String(constvars.LoggingPatientIDKey, cmd.PatientID),
	)

	err := c.repository.Upsert(ctx, &models.Patient{
		PatientID: cmd.PatientID,
		Name:      cmd.Name,
		Phone:     cmd.Phone,
		Email:     cmd.Email,
	})
	if err != nil {
		c.log.Error("patientCommandConsumer.createPatient cannot persist patient",
			zap.String(constvars.LoggingPatientIDKey, cmd.PatientID),
			zap.Error(err),
		)
		return c.events.Publish(ctx, constvars.EventPatientCreationFailed, correlationID,
			models.PatientCreationFailedEvent{PatientID: cmd.PatientID, Reason: err.Error()})
	}

	return c.events.Publish(ctx, constvars.EventPatientCreated, correlationID,
		models.PatientCreatedEvent{PatientID: cmd.PatientID})
}

// deletePatient is the saga's compensation; deleting an absent patient is
// already the desired end state.
func (c *CommandConsumer) deletePatient(ctx context.Context, cmd *models.DeletePatientCommand) error {
	c.log.Info("patientCommandConsumer.deletePatient called",
		zap.String(constvars.LoggingPatientIDKey, cmd.PatientID),
	)
	return c.repository.Delete(ctx, cmd.PatientID)
}
