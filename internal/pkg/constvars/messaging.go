package constvars

// Topic exchange carrying every command, event and fired deadline.
const (
	MessagingExchange = "clinic.booking"

	QueueSlotCommands         = "booking_service_slot_command_queue"
	QueueVerificationCommands = "booking_service_verification_command_queue"
	QueuePatientCommands      = "booking_service_patient_command_queue"
	QueueAppointmentCommands  = "booking_service_appointment_command_queue"
	QueueSagaEvents           = "booking_service_saga_event_queue"
	QueueProjectionEvents     = "booking_service_projection_event_queue"
)

// Routing keys. Commands are addressed to one consumer, events fan out.
const (
	CmdLockSlot              = "cmd.slot.lock"
	CmdReleaseSlotLock       = "cmd.slot.release"
	CmdCreateSlot            = "cmd.slot.create"
	CmdUpdateSlotMaxQuantity = "cmd.slot.update-max-quantity"
	CmdVerifyEmail           = "cmd.verification.verify-email"
	CmdCreatePatient         = "cmd.patient.create"
	CmdDeletePatient         = "cmd.patient.delete"
	CmdCreateAppointment     = "cmd.appointment.create"

	EventSlotCreated               = "event.slot.created"
	EventSlotLocked                = "event.slot.locked"
	EventSlotLockReleased          = "event.slot.lock-released"
	EventSlotMaxQuantityUpdated    = "event.slot.max-quantity-updated"
	EventEmailVerified             = "event.verification.verified"
	EventEmailVerificationFailed   = "event.verification.failed"
	EventPatientCreated            = "event.patient.created"
	EventPatientCreationFailed     = "event.patient.creation-failed"
	EventAppointmentCreated        = "event.appointment.created"
	EventAppointmentCreationFailed = "event.appointment.creation-failed"
	EventBookingCompleted          = "event.booking.completed"
	EventBookingRejected           = "event.booking.rejected"
	EventDeadlineFired             = "event.deadline.fired"
)
