package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Envelope is the wire format for every command, event and fired deadline on
// the bus. Name doubles as the routing key; CorrelationID is the value the
// saga manager routes on.
type Envelope struct {
	MessageID     string          `json:"message_id"`
	Name          string          `json:"name"`
	CorrelationID string          `json:"correlation_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(messageID, name, correlationID string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		MessageID:     messageID,
		Name:          name,
		CorrelationID: correlationID,
		OccurredAt:    time.Now().UTC(),
		Payload:       data,
	}, nil
}

// Commands.

type LockSlotCommand struct {
	SlotID      string `json:"slot_id"`
	BookingID   string `json:"booking_id"`
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

type ReleaseSlotLockCommand struct {
	SlotID      string `json:"slot_id"`
	Fingerprint string `json:"fingerprint"`
}

type CreateSlotCommand struct {
	SlotID      string `json:"slot_id"`
	Date        string `json:"date"`
	Shift       int    `json:"shift"`
	PackageID   string `json:"package_id"`
	MaxQuantity int    `json:"max_quantity"`
}

type UpdateSlotMaxQuantityCommand struct {
	SlotID      string `json:"slot_id"`
	MaxQuantity int    `json:"max_quantity"`
}

type VerifyEmailCommand struct {
	VerificationID string `json:"verification_id"`
	Email          string `json:"email"`
}

type CreatePatientCommand struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type DeletePatientCommand struct {
	PatientID string `json:"patient_id"`
}

type CreateAppointmentCommand struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	SlotID        string `json:"slot_id"`
}

// Events from the collaborators.

type EmailVerifiedEvent struct {
	VerificationID string `json:"verification_id"`
}

type EmailVerificationFailedEvent struct {
	VerificationID string `json:"verification_id"`
	Reason         string `json:"reason"`
}

type PatientCreatedEvent struct {
	PatientID string `json:"patient_id"`
}

type PatientCreationFailedEvent struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
}

type AppointmentCreatedEvent struct {
	AppointmentID string `json:"appointment_id"`
}

type AppointmentCreationFailedEvent struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

// Events the saga publishes.

type BookingCompletedEvent struct {
	BookingID     string `json:"booking_id"`
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
}

type BookingRejectedEvent struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// DeadlineFiredEvent is delivered by the deadline scheduler exactly like any
// other correlated event.
type DeadlineFiredEvent struct {
	DeadlineID    string `json:"deadline_id"`
	Name          string `json:"name"`
	CorrelationID string `json:"correlation_id"`
}
