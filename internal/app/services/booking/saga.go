package booking

import (
	"context"
	"time"

	"clinic-booking-service/internal/app/config"
	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// saga drives one booking attempt through the workflow state machine. Every
// handler is guarded by the instance's current state, so a duplicate or stale
// event falls through as a no-op instead of re-running its action. Handlers
// mutate the instance; the manager persists it after each dispatch.
//
// Downstream ids (verification, patient, appointment) are generated here
// before the first send and never change, which is what makes command resends
// idempotent upserts on the collaborator side.
type saga struct {
	commands  contracts.CommandBus
	events    contracts.EventPublisher
	deadlines contracts.DeadlineScheduler
	registry  correlationBinder
	log       *zap.Logger
	cfg       config.Booking
}

// correlationBinder registers a new correlation key for a running instance.
type correlationBinder interface {
	Bind(ctx context.Context, correlationID, bookingID string) error
}

func newSaga(
	commands contracts.CommandBus,
	events contracts.EventPublisher,
	deadlines contracts.DeadlineScheduler,
	registry correlationBinder,
	logger *zap.Logger,
	cfg config.Booking,
) *saga {
	return &saga{
		commands:  commands,
		events:    events,
		deadlines: deadlines,
		registry:  registry,
		log:       logger,
		cfg:       cfg,
	}
}

func (s *saga) timeout() time.Duration {
	return time.Duration(s.cfg.TimeoutInSeconds) * time.Second
}

func (s *saga) backoff(attempt int) time.Duration {
	return time.Duration(s.cfg.RetryBackoffInSeconds*attempt) * time.Second
}

// onSlotLocked starts the workflow: overall deadline, then email verification.
func (s *saga) onSlotLocked(ctx context.Context, instance *models.BookingSagaInstance, event *models.SlotLocked) error {
	if instance.State != models.SagaStateLocked {
		s.dropEvent(instance, constvars.EventSlotLocked)
		return nil
	}

	deadlineID, err := s.deadlines.Schedule(ctx, s.timeout(), constvars.DeadlineBooking, instance.BookingID)
	if err != nil {
		return err
	}
	instance.BookingDeadlineID = deadlineID

	instance.VerificationID = uuid.NewString()
	if err := s.registry.Bind(ctx, instance.VerificationID, instance.BookingID); err != nil {
		return err
	}
	if err := s.commands.Send(ctx, constvars.CmdVerifyEmail, instance.VerificationID, models.VerifyEmailCommand{
		VerificationID: instance.VerificationID,
		Email:          instance.Email,
	}); err != nil {
		return err
	}

	instance.State = models.SagaStatePendingVerifyEmail
	s.logTransition(instance, constvars.EventSlotLocked)
	return nil
}

func (s *saga) onEmailVerified(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingVerifyEmail {
		s.dropEvent(instance, constvars.EventEmailVerified)
		return nil
	}

	instance.PatientID = uuid.NewString()
	if err := s.registry.Bind(ctx, instance.PatientID, instance.BookingID); err != nil {
		return err
	}
	if err := s.sendCreatePatient(ctx, instance); err != nil {
		return err
	}

	instance.State = models.SagaStatePendingCreatePatient
	s.logTransition(instance, constvars.EventEmailVerified)
	return nil
}

func (s *saga) onEmailVerificationFailed(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingVerifyEmail {
		s.dropEvent(instance, constvars.EventEmailVerificationFailed)
		return nil
	}
	return s.rollback(ctx, instance, constvars.ReasonEmailVerificationFailed)
}

func (s *saga) onPatientCreated(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingCreatePatient {
		s.dropEvent(instance, constvars.EventPatientCreated)
		return nil
	}

	if err := s.cancelRetryPatient(ctx, instance); err != nil {
		return err
	}

	instance.AppointmentID = uuid.NewString()
	if err := s.registry.Bind(ctx, instance.AppointmentID, instance.BookingID); err != nil {
		return err
	}
	if err := s.sendCreateAppointment(ctx, instance); err != nil {
		return err
	}

	instance.State = models.SagaStatePendingCreateAppointment
	s.logTransition(instance, constvars.EventPatientCreated)
	return nil
}

func (s *saga) onPatientCreationFailed(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingCreatePatient {
		s.dropEvent(instance, constvars.EventPatientCreationFailed)
		return nil
	}
	return s.retryOrRollbackPatient(ctx, instance, constvars.ReasonPatientCreationFailed)
}

func (s *saga) onAppointmentCreated(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingCreateAppointment {
		s.dropEvent(instance, constvars.EventAppointmentCreated)
		return nil
	}

	if err := s.cancelRetryAppointment(ctx, instance); err != nil {
		return err
	}

	if err := s.registry.Bind(ctx, instance.Fingerprint, instance.BookingID); err != nil {
		return err
	}
	if err := s.sendReleaseLock(ctx, instance); err != nil {
		return err
	}

	instance.State = models.SagaStatePendingReleaseSlotLock
	s.logTransition(instance, constvars.EventAppointmentCreated)
	return nil
}

func (s *saga) onAppointmentCreationFailed(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingCreateAppointment {
		s.dropEvent(instance, constvars.EventAppointmentCreationFailed)
		return nil
	}
	return s.retryOrRollbackAppointment(ctx, instance, constvars.ReasonAppointmentCreationFailed)
}

func (s *saga) onSlotLockReleased(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.State != models.SagaStatePendingReleaseSlotLock {
		s.dropEvent(instance, constvars.EventSlotLockReleased)
		return nil
	}

	if err := s.cancelBookingDeadline(ctx, instance); err != nil {
		return err
	}

	if err := s.events.Publish(ctx, constvars.EventBookingCompleted, instance.BookingID, models.BookingCompletedEvent{
		BookingID:     instance.BookingID,
		AppointmentID: instance.AppointmentID,
		PatientID:     instance.PatientID,
	}); err != nil {
		return err
	}

	instance.State = models.SagaStateCompleted
	s.logTransition(instance, constvars.EventSlotLockReleased)
	return nil
}

// onDeadlineFired routes a fired timer by its name. The overall booking
// deadline means the current stage ran out of time; the stage retry deadlines
// re-issue their command with the same downstream id.
func (s *saga) onDeadlineFired(ctx context.Context, instance *models.BookingSagaInstance, event *models.DeadlineFiredEvent) error {
	switch event.Name {
	case constvars.DeadlineBooking:
		return s.onBookingTimeout(ctx, instance)

	case constvars.DeadlineRetryCreatePatient:
		if instance.State != models.SagaStatePendingCreatePatient {
			s.dropEvent(instance, constvars.EventDeadlineFired)
			return nil
		}
		instance.RetryPatientDeadlineID = ""
		s.log.Info("bookingSaga.onDeadlineFired re-issuing create patient",
			zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
			zap.Int(constvars.LoggingRetryCountKey, instance.RetryCountPatient),
		)
		return s.sendCreatePatient(ctx, instance)

	case constvars.DeadlineRetryCreateAppointment:
		if instance.State != models.SagaStatePendingCreateAppointment {
			s.dropEvent(instance, constvars.EventDeadlineFired)
			return nil
		}
		instance.RetryAppointmentDeadlineID = ""
		s.log.Info("bookingSaga.onDeadlineFired re-issuing create appointment",
			zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
			zap.Int(constvars.LoggingRetryCountKey, instance.RetryCountAppointment),
		)
		return s.sendCreateAppointment(ctx, instance)
	}

	s.log.Warn("bookingSaga.onDeadlineFired unknown deadline name, dropping",
		zap.String(constvars.LoggingDeadlineNameKey, event.Name),
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
	)
	return nil
}

// onBookingTimeout applies the overall booking budget: stages that retry keep
// retrying within their counter, the release stage is past the point of no
// return and only gets nudged, everything else rolls back.
func (s *saga) onBookingTimeout(ctx context.Context, instance *models.BookingSagaInstance) error {
	instance.BookingDeadlineID = ""

	s.log.Warn("bookingSaga.onBookingTimeout overall deadline fired",
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
		zap.String(constvars.LoggingSagaStateKey, string(instance.State)),
	)

	switch instance.State {
	case models.SagaStatePendingCreatePatient:
		return s.retryOrRollbackPatient(ctx, instance, constvars.ReasonTimeout)
	case models.SagaStatePendingCreateAppointment:
		return s.retryOrRollbackAppointment(ctx, instance, constvars.ReasonTimeout)
	case models.SagaStateLocked,
		models.SagaStatePendingVerifyEmail:
		return s.rollback(ctx, instance, constvars.ReasonTimeout)
	case models.SagaStatePendingReleaseSlotLock:
		// The patient and appointment already exist; rejecting now would
		// strand them with nothing left to compensate the rejection. Re-issue
		// the release and let the released event complete the saga.
		return s.sendReleaseLock(ctx, instance)
	}

	s.dropEvent(instance, constvars.EventDeadlineFired)
	return nil
}

func (s *saga) retryOrRollbackPatient(ctx context.Context, instance *models.BookingSagaInstance, reason string) error {
	if instance.RetryCountPatient >= s.cfg.MaxRetry {
		return s.rollback(ctx, instance, reason)
	}
	instance.RetryCountPatient++

	deadlineID, err := s.deadlines.Schedule(ctx,
		s.backoff(instance.RetryCountPatient), constvars.DeadlineRetryCreatePatient, instance.BookingID)
	if err != nil {
		return err
	}
	instance.RetryPatientDeadlineID = deadlineID

	s.log.Warn("bookingSaga.retryOrRollbackPatient scheduled retry",
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
		zap.Int(constvars.LoggingRetryCountKey, instance.RetryCountPatient),
		zap.String(constvars.LoggingReasonKey, reason),
	)
	return nil
}

func (s *saga) retryOrRollbackAppointment(ctx context.Context, instance *models.BookingSagaInstance, reason string) error {
	if instance.RetryCountAppointment >= s.cfg.MaxRetry {
		return s.rollback(ctx, instance, reason)
	}
	instance.RetryCountAppointment++

	deadlineID, err := s.deadlines.Schedule(ctx,
		s.backoff(instance.RetryCountAppointment), constvars.DeadlineRetryCreateAppointment, instance.BookingID)
	if err != nil {
		return err
	}
	instance.RetryAppointmentDeadlineID = deadlineID

	s.log.Warn("bookingSaga.retryOrRollbackAppointment scheduled retry",
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
		zap.Int(constvars.LoggingRetryCountKey, instance.RetryCountAppointment),
		zap.String(constvars.LoggingReasonKey, reason),
	)
	return nil
}

// rollback compensates and terminates. The lock release is unconditional; the
// patient delete only happens when a patient actually exists, which is exactly
// the appointment stage.
func (s *saga) rollback(ctx context.Context, instance *models.BookingSagaInstance, reason string) error {
	if err := s.cancelBookingDeadline(ctx, instance); err != nil {
		return err
	}
	if err := s.cancelRetryPatient(ctx, instance); err != nil {
		return err
	}
	if err := s.cancelRetryAppointment(ctx, instance); err != nil {
		return err
	}

	if err := s.sendReleaseLock(ctx, instance); err != nil {
		return err
	}

	if instance.PatientID != "" && instance.State == models.SagaStatePendingCreateAppointment {
		if err := s.commands.Send(ctx, constvars.CmdDeletePatient, instance.PatientID, models.DeletePatientCommand{
			PatientID: instance.PatientID,
		}); err != nil {
			return err
		}
	}

	if err := s.events.Publish(ctx, constvars.EventBookingRejected, instance.BookingID, models.BookingRejectedEvent{
		BookingID: instance.BookingID,
		Reason:    reason,
	}); err != nil {
		return err
	}

	instance.Reason = reason
	instance.State = models.SagaStateFailed
	s.log.Warn("bookingSaga.rollback booking rejected",
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
		zap.String(constvars.LoggingReasonKey, reason),
	)
	return nil
}

func (s *saga) sendCreatePatient(ctx context.Context, instance *models.BookingSagaInstance) error {
	return s.commands.Send(ctx, constvars.CmdCreatePatient, instance.PatientID, models.CreatePatientCommand{
		PatientID: instance.PatientID,
		Name:      instance.Name,
		Phone:     instance.Phone,
		Email:     instance.Email,
	})
}

func (s *saga) sendCreateAppointment(ctx context.Context, instance *models.BookingSagaInstance) error {
	return s.commands.Send(ctx, constvars.CmdCreateAppointment, instance.AppointmentID, models.CreateAppointmentCommand{
		AppointmentID: instance.AppointmentID,
		PatientID:     instance.PatientID,
		SlotID:        instance.SlotID,
	})
}

func (s *saga) sendReleaseLock(ctx context.Context, instance *models.BookingSagaInstance) error {
	return s.commands.Send(ctx, constvars.CmdReleaseSlotLock, instance.Fingerprint, models.ReleaseSlotLockCommand{
		SlotID:      instance.SlotID,
		Fingerprint: instance.Fingerprint,
	})
}

func (s *saga) cancelBookingDeadline(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.BookingDeadlineID == "" {
		return nil
	}
	if err := s.deadlines.Cancel(ctx, constvars.DeadlineBooking, instance.BookingDeadlineID); err != nil {
		return err
	}
	instance.BookingDeadlineID = ""
	return nil
}

func (s *saga) cancelRetryPatient(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.RetryPatientDeadlineID == "" {
		return nil
	}
	if err := s.deadlines.Cancel(ctx, constvars.DeadlineRetryCreatePatient, instance.RetryPatientDeadlineID); err != nil {
		return err
	}
	instance.RetryPatientDeadlineID = ""
	return nil
}

func (s *saga) cancelRetryAppointment(ctx context.Context, instance *models.BookingSagaInstance) error {
	if instance.RetryAppointmentDeadlineID == "" {
		return nil
	}
	if err := s.deadlines.Cancel(ctx, constvars.DeadlineRetryCreateAppointment, instance.RetryAppointmentDeadlineID); err != nil {
		return err
	}
	instance.RetryAppointmentDeadlineID = ""
	return nil
}

func (s *saga) logTransition(instance *models.BookingSagaInstance, event string) {
	s.log.Info("bookingSaga transition",
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
		zap.String(constvars.LoggingEventKey, event),
		zap.String(constvars.LoggingSagaStateKey, string(instance.State)),
	)
}

func (s *saga) dropEvent(instance *models.BookingSagaInstance, event string) {
	s.log.Debug("bookingSaga dropping event for state it no longer matches",
		zap.String(constvars.LoggingBookingIDKey, instance.BookingID),
		zap.String(constvars.LoggingEventKey, event),
		zap.String(constvars.LoggingSagaStateKey, string(instance.State)),
	)
}
