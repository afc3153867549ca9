package models

import "time"

type Appointment struct {
	AppointmentID string    `bson:"appointment_id" json:"appointment_id"`
	PatientID     string    `bson:"patient_id" json:"patient_id"`
	SlotID        string    `bson:"slot_id" json:"slot_id"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
