package models

import "time"

// SagaState is the booking saga's workflow state. Transitions are monotonic;
// COMPLETED and FAILED are terminal.
type SagaState string

const (
	SagaStateLocked                   SagaState = "LOCKED"
	SagaStatePendingVerifyEmail       SagaState = "PENDING_VERIFY_EMAIL"
	SagaStatePendingCreatePatient     SagaState = "PENDING_CREATE_PATIENT"
	SagaStatePendingCreateAppointment SagaState = "PENDING_CREATE_APPOINTMENT"
	SagaStatePendingReleaseSlotLock   SagaState = "PENDING_RELEASE_SLOT_LOCK"
	SagaStateCompleted                SagaState = "COMPLETED"
	SagaStateFailed                   SagaState = "FAILED"
)

func (s SagaState) Terminal() bool {
	return s == SagaStateCompleted || s == SagaStateFailed
}

// BookingSagaInstance is the persistent state of one booking attempt. The
// correlation ids are bound incrementally as the workflow advances.
type BookingSagaInstance struct {
	BookingID   string    `bson:"booking_id" json:"booking_id"`
	State       SagaState `bson:"state" json:"state"`
	SlotID      string    `bson:"slot_id" json:"slot_id"`
	Fingerprint string    `bson:"fingerprint" json:"fingerprint"`
	Name        string    `bson:"name" json:"name"`
	Phone       string    `bson:"phone" json:"phone"`
	Email       string    `bson:"email" json:"email"`

	VerificationID string `bson:"verification_id,omitempty" json:"verification_id,omitempty"`
	PatientID      string `bson:"patient_id,omitempty" json:"patient_id,omitempty"`
	AppointmentID  string `bson:"appointment_id,omitempty" json:"appointment_id,omitempty"`

	BookingDeadlineID          string `bson:"booking_deadline_id,omitempty" json:"booking_deadline_id,omitempty"`
	RetryPatientDeadlineID     string `bson:"retry_patient_deadline_id,omitempty" json:"retry_patient_deadline_id,omitempty"`
	RetryAppointmentDeadlineID string `bson:"retry_appointment_deadline_id,omitempty" json:"retry_appointment_deadline_id,omitempty"`

	RetryCountPatient     int    `bson:"retry_count_patient" json:"retry_count_patient"`
	RetryCountAppointment int    `bson:"retry_count_appointment" json:"retry_count_appointment"`
	Reason                string `bson:"reason,omitempty" json:"reason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// BookingStatusView is the read model behind the status query endpoint.
type BookingStatusView struct {
	BookingID     string    `bson:"booking_id" json:"booking_id"`
	Status        string    `bson:"status" json:"status"`
	Reason        string    `bson:"reason,omitempty" json:"reason,omitempty"`
	PatientID     string    `bson:"patient_id,omitempty" json:"patient_id,omitempty"`
	AppointmentID string    `bson:"appointment_id,omitempty" json:"appointment_id,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
