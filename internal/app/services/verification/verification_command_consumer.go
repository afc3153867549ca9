package verification

import (
	"context"
	"fmt"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var emailValidator = validator.New()

// CommandConsumer checks booking email addresses. An address must parse and a
// confirmation mail must be accepted by the SMTP relay; anything else fails
// the verification and with it the booking.
type CommandConsumer struct {
	mailer contracts.MailerService
	events contracts.EventPublisher
	log    *zap.Logger
}

func NewCommandConsumer(
	mailer contracts.MailerService,
	events contracts.EventPublisher,
	logger *zap.Logger,
) *CommandConsumer {
	return &CommandConsumer{mailer: mailer, events: events, log: logger}
}

func (c *CommandConsumer) Start(ctx context.Context, consumer contracts.MessageConsumer) error {
	routingKeys := []string{constvars.CmdVerifyEmail}
	return consumer.Consume(ctx, constvars.QueueVerificationCommands, routingKeys, c.handle)
}

func (c *CommandConsumer) handle(ctx context.Context, envelope models.Envelope) error {
	if envelope.Name != constvars.CmdVerifyEmail {
		c.log.Warn("verificationCommandConsumer.handle unknown command, dropping",
			zap.String(constvars.LoggingCommandKey, envelope.Name),
		)
		return nil
	}

	var cmd models.VerifyEmailCommand
	if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
		return exceptions.ErrCannotParseJSON(err)
	}

	c.log.Info("verificationCommandConsumer.handle verifying email",
		zap.String("verification_id", cmd.VerificationID),
	)

	if err := emailValidator.Var(cmd.Email, "required,email"); err != nil {
		return c.fail(ctx, envelope.CorrelationID, cmd.VerificationID, "address is not a valid email")
	}

	body := fmt.Sprintf(constvars.EmailBodyVerification, cmd.VerificationID)
	if err := c.mailer.SendBasicEmail(ctx, cmd.Email, constvars.EmailVerificationSubjectMessage, body); err != nil {
		c.log.Error("verificationCommandConsumer.handle cannot send verification email",
			zap.String("verification_id", cmd.VerificationID),
			zap.Error(err),
		)
		return c.fail(ctx, envelope.CorrelationID, cmd.VerificationID, "verification email was rejected")
	}

	return c.events.Publish(ctx, constvars.EventEmailVerified, envelope.CorrelationID,
		models.EmailVerifiedEvent{VerificationID: cmd.VerificationID})
}

func (c *CommandConsumer) fail(ctx context.Context, correlationID, verificationID, reason string) error {
	return c.events.Publish(ctx, constvars.EventEmailVerificationFailed, correlationID,
		models.EmailVerificationFailedEvent{VerificationID: verificationID, Reason: reason})
}
